package handler

import (
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-booking-engine/internal/service"
)

func TestFailMapsKinds(t *testing.T) {
    log := logrus.New()
    log.SetOutput(io.Discard)
    b := base{log: log}

    cases := []struct {
        name    string
        err     error
        status  int
        message string
    }{
        {"validation", service.Validation(service.CodeInvalidInput, "bad seats"), http.StatusBadRequest, "bad seats"},
        {"conflict", service.Conflict(service.CodeAlreadyPaid, "paid"), http.StatusConflict, "paid"},
        {"not found", service.NotFound("gone"), http.StatusNotFound, "gone"},
        {"integrity", service.Integrity("finalize", errors.New("disk on fire")), http.StatusInternalServerError, genericFailure},
        {"plain error", errors.New("boom"), http.StatusInternalServerError, genericFailure},
    }
    e := echo.New()
    for _, tc := range cases {
        rec := httptest.NewRecorder()
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
        if err := b.fail(c, tc.err); err != nil {
            t.Fatalf("%s: fail returned %v", tc.name, err)
        }
        if rec.Code != tc.status {
            t.Fatalf("%s: status = %d, want %d", tc.name, rec.Code, tc.status)
        }
        var body map[string]any
        if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
            t.Fatalf("%s: decode: %v", tc.name, err)
        }
        if body["error"] != tc.message {
            t.Fatalf("%s: error = %v, want %q", tc.name, body["error"], tc.message)
        }
    }
}

func TestParseID(t *testing.T) {
    e := echo.New()
    for raw, ok := range map[string]bool{"12": true, "0": false, "-1": false, "x": false} {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
        c.SetParamNames("id")
        c.SetParamValues(raw)
        _, err := parseID(c, "id")
        if (err == nil) != ok {
            t.Fatalf("parseID(%q) err = %v", raw, err)
        }
    }
}
