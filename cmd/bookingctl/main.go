package main

import (
    "context"
    "os"

    "github.com/joho/godotenv"
)

func main() {
    _ = godotenv.Load()
    if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
        os.Exit(1)
    }
}
