package queue

import (
    "encoding/json"
    "io"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
    l := logrus.New()
    l.SetOutput(io.Discard)
    return l
}

func TestHandleMessageAppendsAuditLine(t *testing.T) {
    dir := t.TempDir()
    c := &Consumer{LogDir: dir, Log: quietLogger()}

    events := []TicketsIssuedEvent{
        {
            ReservationID: 7, ScreeningID: 3, PurchaserKind: "registered", UserID: 42,
            SeatLabels: []string{"A1", "A2"}, TicketCodes: []string{"TKT-AAAAA-BBBBB", "TKT-CCCCC-DDDDD"},
            TotalAmount: "887.04", TransactionRef: "TXN_1_ABCDEF12", IssuedAt: "2030-01-01T10:00:00Z",
        },
        {
            ReservationID: 8, ScreeningID: 3, PurchaserKind: "guest", GuestName: "Ana", GuestEmail: "ana@example.com",
            SeatLabels: []string{"C5"}, TicketCodes: []string{"TKT-EEEEE-FFFFF"},
            TotalAmount: "201.60", TransactionRef: "TXN_2_ABCDEF13", IssuedAt: "2030-01-01T10:05:00Z",
        },
    }
    for _, ev := range events {
        body, err := json.Marshal(ev)
        if err != nil {
            t.Fatalf("marshal: %v", err)
        }
        if err := c.HandleMessage(body); err != nil {
            t.Fatalf("HandleMessage: %v", err)
        }
    }

    raw, err := os.ReadFile(filepath.Join(dir, "fulfillment.log"))
    if err != nil {
        t.Fatalf("read log: %v", err)
    }
    lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
    if len(lines) != 2 {
        t.Fatalf("got %d lines, want 2:\n%s", len(lines), raw)
    }
    for _, want := range []string{"reservation_id=7", "user_id=42", "seats=[A1,A2]", "total=887.04"} {
        if !strings.Contains(lines[0], want) {
            t.Fatalf("line %q missing %q", lines[0], want)
        }
    }
    if !strings.Contains(lines[1], `guest="Ana" <ana@example.com>`) {
        t.Fatalf("guest line = %q", lines[1])
    }
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
    c := &Consumer{LogDir: t.TempDir(), Log: quietLogger()}
    for _, body := range []string{"not json", `{"reservation_id":0}`} {
        if err := c.HandleMessage([]byte(body)); err == nil {
            t.Fatalf("HandleMessage(%q) succeeded, want error", body)
        }
    }
}
