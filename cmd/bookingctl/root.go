package main

import (
    "database/sql"
    "fmt"
    "os"
    "strconv"
    "time"

    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"
    "github.com/spf13/cobra"

    "github.com/iliyamo/cinema-booking-engine/internal/config"
    "github.com/iliyamo/cinema-booking-engine/internal/database"
    "github.com/iliyamo/cinema-booking-engine/internal/logger"
    "github.com/iliyamo/cinema-booking-engine/internal/middleware"
    "github.com/iliyamo/cinema-booking-engine/internal/model"
    "github.com/iliyamo/cinema-booking-engine/internal/service"
    "github.com/iliyamo/cinema-booking-engine/internal/utils"
)

func newRootCmd() *cobra.Command {
    root := &cobra.Command{
        Use:          "bookingctl",
        Short:        "Operate the cinema booking engine",
        Long:         `Apply migrations, schedule screenings, issue promo codes and mint access tokens from the terminal.`,
        SilenceUsage: true,
    }
    root.AddCommand(newTokenCmd(), newMigrateCmd(), newScreeningCmd(), newPromoCmd())
    return root
}

func newTokenCmd() *cobra.Command {
    var (
        userID uint64
        role   string
        ttl    int
    )
    cmd := &cobra.Command{
        Use:   "token",
        Short: "Mint a signed access token",
        Long:  `Mint an HS256 access token signed with JWT_SECRET, for local testing and service accounts.`,
        RunE: func(cmd *cobra.Command, args []string) error {
            if role != middleware.RoleCustomer && role != middleware.RoleAdmin {
                return fmt.Errorf("role must be %s or %s", middleware.RoleCustomer, middleware.RoleAdmin)
            }
            if userID == 0 {
                return fmt.Errorf("--user is required")
            }
            if ttl <= 0 {
                ttl = envTTL()
            }
            tok, err := utils.NewAccessToken(os.Getenv("JWT_SECRET"), userID, role, ttl)
            if err != nil {
                return err
            }
            fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
            fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", tok.Exp.Format(time.RFC3339))
            return nil
        },
    }
    cmd.Flags().Uint64Var(&userID, "user", 0, "user id placed in the sub claim")
    cmd.Flags().StringVar(&role, "role", middleware.RoleCustomer, "CUSTOMER or ADMIN")
    cmd.Flags().IntVar(&ttl, "ttl", 0, "lifetime in minutes (default ACCESS_TOKEN_TTL_MIN or 60)")
    return cmd
}

func envTTL() int {
    if n, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MIN")); err == nil && n > 0 {
        return n
    }
    return 60
}

// openDB connects with the server's database settings.
func openDB() (*sql.DB, *logrus.Logger, error) {
    cfg := config.Load()
    log := logger.New(cfg.Env, cfg.LogLevel)
    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        return nil, nil, err
    }
    return db, log, nil
}

func newMigrateCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "migrate",
        Short: "Apply pending schema migrations",
        RunE: func(cmd *cobra.Command, args []string) error {
            db, _, err := openDB()
            if err != nil {
                return err
            }
            defer db.Close()
            applied, err := database.Migrate(cmd.Context(), db)
            if err != nil {
                return err
            }
            if len(applied) == 0 {
                fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
            }
            for _, v := range applied {
                fmt.Fprintln(cmd.OutOrStdout(), "applied", v)
            }
            return nil
        },
    }
}

func newScreeningCmd() *cobra.Command {
    var (
        movieID, cinemaID uint64
        start             string
        standard, deluxe  string
    )
    create := &cobra.Command{
        Use:   "create",
        Short: "Schedule a screening and generate its seats",
        RunE: func(cmd *cobra.Command, args []string) error {
            startsAt, err := time.Parse(time.RFC3339, start)
            if err != nil {
                return fmt.Errorf("--start: %w", err)
            }
            std, err := decimal.NewFromString(standard)
            if err != nil {
                return fmt.Errorf("--standard: %w", err)
            }
            dlx, err := decimal.NewFromString(deluxe)
            if err != nil {
                return fmt.Errorf("--deluxe: %w", err)
            }
            db, log, err := openDB()
            if err != nil {
                return err
            }
            defer db.Close()
            admin := service.NewScreeningAdmin(db, service.NewSeatInventory(db, log), log)
            s, seats, err := admin.Create(cmd.Context(), service.NewScreening{
                MovieID:       movieID,
                CinemaID:      cinemaID,
                StartTime:     startsAt,
                StandardPrice: std,
                DeluxePrice:   dlx,
            })
            if err != nil {
                return err
            }
            fmt.Fprintf(cmd.OutOrStdout(), "screening %d created with %d seats\n", s.ID, seats)
            return nil
        },
    }
    create.Flags().Uint64Var(&movieID, "movie", 0, "movie id")
    create.Flags().Uint64Var(&cinemaID, "cinema", 0, "cinema id")
    create.Flags().StringVar(&start, "start", "", "start time, RFC3339")
    create.Flags().StringVar(&standard, "standard", "", "standard seat price")
    create.Flags().StringVar(&deluxe, "deluxe", "", "deluxe seat price")

    cmd := &cobra.Command{Use: "screening", Short: "Manage screenings"}
    cmd.AddCommand(create)
    return cmd
}

func newPromoCmd() *cobra.Command {
    var (
        code, desc, kind string
        amount, minPurch string
        from, until      string
        maxUses          int
    )
    create := &cobra.Command{
        Use:   "create",
        Short: "Issue a promo code",
        RunE: func(cmd *cobra.Command, args []string) error {
            amt, err := decimal.NewFromString(amount)
            if err != nil {
                return fmt.Errorf("--amount: %w", err)
            }
            minAmt := decimal.Zero
            if minPurch != "" {
                if minAmt, err = decimal.NewFromString(minPurch); err != nil {
                    return fmt.Errorf("--min-purchase: %w", err)
                }
            }
            validFrom, err := time.Parse(time.DateOnly, from)
            if err != nil {
                return fmt.Errorf("--from: %w", err)
            }
            validUntil, err := time.Parse(time.DateOnly, until)
            if err != nil {
                return fmt.Errorf("--until: %w", err)
            }
            in := service.NewPromoCode{
                Code:              code,
                Description:       desc,
                DiscountType:      model.DiscountType(kind),
                DiscountAmount:    amt,
                ValidFrom:         validFrom,
                ValidUntil:        validUntil,
                MinPurchaseAmount: minAmt,
            }
            if maxUses > 0 {
                in.MaxUses = &maxUses
            }
            db, log, err := openDB()
            if err != nil {
                return err
            }
            defer db.Close()
            p, err := service.NewPromoLedger(db, log).Create(cmd.Context(), in)
            if err != nil {
                return err
            }
            fmt.Fprintf(cmd.OutOrStdout(), "promo %s created (id %d)\n", p.Code, p.ID)
            return nil
        },
    }
    create.Flags().StringVar(&code, "code", "", "promo code")
    create.Flags().StringVar(&desc, "description", "", "description")
    create.Flags().StringVar(&kind, "type", string(model.DiscountPercentage), "PERCENTAGE or FIXED")
    create.Flags().StringVar(&amount, "amount", "", "percent or fixed amount")
    create.Flags().StringVar(&minPurch, "min-purchase", "", "minimum subtotal")
    create.Flags().StringVar(&from, "from", "", "first valid day, YYYY-MM-DD")
    create.Flags().StringVar(&until, "until", "", "last valid day, YYYY-MM-DD")
    create.Flags().IntVar(&maxUses, "max-uses", 0, "redemption cap (0 = unlimited)")

    cmd := &cobra.Command{Use: "promo", Short: "Manage promo codes"}
    cmd.AddCommand(create)
    return cmd
}
