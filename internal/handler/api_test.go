package handler_test

import (
    "bytes"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-booking-engine/internal/config"
    "github.com/iliyamo/cinema-booking-engine/internal/handler"
    "github.com/iliyamo/cinema-booking-engine/internal/router"
    "github.com/iliyamo/cinema-booking-engine/internal/service"
    "github.com/iliyamo/cinema-booking-engine/internal/storetest"
    "github.com/iliyamo/cinema-booking-engine/internal/utils"
)

const secret = "handler-test-secret"

type api struct {
    t       *testing.T
    e       *echo.Echo
    fixture storetest.Fixture
}

func newAPI(t *testing.T) *api {
    t.Helper()
    db := storetest.Open(t)
    fixture := storetest.SeedScreening(t, db, time.Now().Add(48*time.Hour), 4, 5, 1)
    log := logrus.New()
    log.SetOutput(io.Discard)

    catalog := service.NewSQLCatalog(db)
    inventory := service.NewSeatInventory(db, log)
    promos := service.NewPromoLedger(db, log)
    payments := service.NewPaymentService(db, catalog, inventory, service.SimulatedGateway{}, nil, log)
    workflow := service.NewWorkflow(db, catalog, inventory, promos, payments,
        service.NewMemorySessionStore(0), log, service.WorkflowConfig{GuestTokenCost: 4})

    e := echo.New()
    e.Validator = handler.NewValidator()
    router.Register(e, db, router.Handlers{
        Catalog:     handler.NewCatalogHandler(catalog, inventory, log),
        Booking:     handler.NewBookingHandler(workflow, log),
        Reservation: handler.NewReservationHandler(workflow, payments, log),
        Admin:       handler.NewAdminHandler(service.NewScreeningAdmin(db, inventory, log), promos, log),
    }, router.Options{JWTSecret: secret, RateLimit: config.RateLimitConfig{}})
    return &api{t: t, e: e, fixture: fixture}
}

func bearer(t *testing.T, userID uint64, role string) http.Header {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, userID, role, 5)
    if err != nil {
        t.Fatalf("token: %v", err)
    }
    return http.Header{"Authorization": []string{"Bearer " + tok.Token}}
}

// do sends a JSON request and decodes a JSON object response.
func (a *api) do(method, path string, hdr http.Header, body any) (int, map[string]any) {
    a.t.Helper()
    var rd io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil {
            a.t.Fatalf("marshal: %v", err)
        }
        rd = bytes.NewReader(b)
    }
    req := httptest.NewRequest(method, path, rd)
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    for k, v := range hdr {
        req.Header[k] = v
    }
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)
    out := map[string]any{}
    if rec.Body.Len() > 0 {
        _ = json.Unmarshal(rec.Body.Bytes(), &out)
    }
    return rec.Code, out
}

func (a *api) seat(label string) uint64 {
    for _, s := range a.fixture.Seats {
        if s.Label == label {
            return s.ID
        }
    }
    a.t.Fatalf("no seat %s", label)
    return 0
}

func (a *api) want(status int, wantStatus int, body map[string]any, what string) {
    a.t.Helper()
    if status != wantStatus {
        a.t.Fatalf("%s: status = %d, want %d (body %v)", what, status, wantStatus, body)
    }
}

func TestGuestBookingFlow(t *testing.T) {
    a := newAPI(t)
    sid := fmt.Sprint(a.fixture.Screening.ID)

    st, body := a.do(http.MethodPost, "/v1/sessions", nil, map[string]any{"screening_id": a.fixture.Screening.ID})
    a.want(st, http.StatusBadRequest, body, "start without contact")

    st, body = a.do(http.MethodPost, "/v1/sessions", nil, map[string]any{
        "screening_id": a.fixture.Screening.ID,
        "guest":        map[string]string{"name": "Ana", "email": "ana@example.com", "phone": "+15550100"},
    })
    a.want(st, http.StatusCreated, body, "start")
    if body["state"] != "EMPTY" {
        t.Fatalf("state = %v", body["state"])
    }
    path := "/v1/sessions/" + body["id"].(string)

    st, body = a.do(http.MethodPut, path+"/seats", nil, map[string]any{"seat_ids": []uint64{a.seat("A1"), a.seat("D1")}})
    a.want(st, http.StatusOK, body, "select seats")

    st, body = a.do(http.MethodGet, path, nil, nil)
    a.want(st, http.StatusOK, body, "quote")
    total, _ := body["total"].(map[string]any)
    if total == nil || total["grand_total"] == nil {
        t.Fatalf("quote body = %v", body)
    }

    st, body = a.do(http.MethodPost, path+"/finalize", nil, nil)
    a.want(st, http.StatusCreated, body, "finalize")
    token, _ := body["access_token"].(string)
    if token == "" {
        t.Fatalf("guest did not receive an access token: %v", body)
    }
    res := body["reservation"].(map[string]any)
    resPath := fmt.Sprintf("/v1/reservations/%v", res["id"])
    guest := http.Header{handler.ReservationTokenHeader: []string{token}}

    st, body = a.do(http.MethodGet, resPath, nil, nil)
    a.want(st, http.StatusNotFound, body, "reservation without token")
    st, body = a.do(http.MethodGet, resPath, http.Header{handler.ReservationTokenHeader: []string{"nope"}}, nil)
    a.want(st, http.StatusNotFound, body, "reservation with wrong token")
    st, body = a.do(http.MethodGet, resPath, guest, nil)
    a.want(st, http.StatusOK, body, "reservation")

    st, body = a.do(http.MethodGet, "/v1/screenings/"+sid+"/seats", nil, nil)
    a.want(st, http.StatusOK, body, "seat map")
    if body["available"] != float64(18) {
        t.Fatalf("available = %v, want 18", body["available"])
    }

    st, body = a.do(http.MethodPost, resPath+"/payments", guest, map[string]string{"method": "BITCOIN"})
    a.want(st, http.StatusBadRequest, body, "bad method")
    st, body = a.do(http.MethodPost, resPath+"/payments", guest, map[string]string{"method": "CARD"})
    a.want(st, http.StatusCreated, body, "pay")
    if tickets, _ := body["tickets"].([]any); len(tickets) != 2 {
        t.Fatalf("tickets = %v", body["tickets"])
    }
    st, body = a.do(http.MethodPost, resPath+"/payments", guest, map[string]string{"method": "CARD"})
    a.want(st, http.StatusConflict, body, "pay twice")
    if body["code"] != "ALREADY_PAID" {
        t.Fatalf("code = %v", body["code"])
    }

    st, body = a.do(http.MethodDelete, resPath, guest, nil)
    a.want(st, http.StatusNoContent, body, "cancel reservation")
    st, body = a.do(http.MethodGet, "/v1/screenings/"+sid+"/seats", nil, nil)
    if body["available"] != float64(20) {
        t.Fatalf("available after cancel = %v, want 20", body["available"])
    }
}

func TestSeatConflictAnswers409(t *testing.T) {
    a := newAPI(t)
    start := func(user uint64) string {
        st, body := a.do(http.MethodPost, "/v1/sessions", bearer(t, user, "CUSTOMER"), map[string]any{"screening_id": a.fixture.Screening.ID})
        a.want(st, http.StatusCreated, body, "start")
        return "/v1/sessions/" + body["id"].(string)
    }
    first, second := start(1), start(2)
    seats := map[string]any{"seat_ids": []uint64{a.seat("B2"), a.seat("B3")}}
    for i, p := range []string{first, second} {
        st, body := a.do(http.MethodPut, p+"/seats", bearer(t, uint64(i+1), "CUSTOMER"), seats)
        a.want(st, http.StatusOK, body, "select")
    }
    st, body := a.do(http.MethodPost, first+"/finalize", bearer(t, 1, "CUSTOMER"), nil)
    a.want(st, http.StatusCreated, body, "first finalize")

    st, body = a.do(http.MethodPost, second+"/finalize", bearer(t, 2, "CUSTOMER"), nil)
    a.want(st, http.StatusConflict, body, "second finalize")
    if body["code"] != "SEATS_NO_LONGER_AVAILABLE" {
        t.Fatalf("code = %v", body["code"])
    }
    details, _ := body["details"].(map[string]any)
    if taken, _ := details["unavailable_seat_ids"].([]any); len(taken) != 2 {
        t.Fatalf("details = %v", body["details"])
    }
}

func TestSessionsBelongToTheirCustomer(t *testing.T) {
    a := newAPI(t)
    st, body := a.do(http.MethodPost, "/v1/sessions", bearer(t, 7, "CUSTOMER"), map[string]any{"screening_id": a.fixture.Screening.ID})
    a.want(st, http.StatusCreated, body, "start")
    path := "/v1/sessions/" + body["id"].(string)

    cases := []struct {
        name string
        hdr  http.Header
        want int
    }{
        {"owner", bearer(t, 7, "CUSTOMER"), http.StatusOK},
        {"other customer", bearer(t, 8, "CUSTOMER"), http.StatusNotFound},
        {"anonymous", nil, http.StatusNotFound},
        {"admin", bearer(t, 1, "ADMIN"), http.StatusOK},
        {"garbage token", http.Header{"Authorization": []string{"Bearer x.y.z"}}, http.StatusUnauthorized},
    }
    for _, tc := range cases {
        st, body := a.do(http.MethodGet, path, tc.hdr, nil)
        if st != tc.want {
            t.Fatalf("%s: status = %d, want %d (%v)", tc.name, st, tc.want, body)
        }
    }

    st, body = a.do(http.MethodDelete, path, bearer(t, 7, "CUSTOMER"), nil)
    a.want(st, http.StatusOK, body, "cancel")
    if body["state"] != "ABORTED" {
        t.Fatalf("state = %v", body["state"])
    }
    st, body = a.do(http.MethodGet, path, bearer(t, 7, "CUSTOMER"), nil)
    a.want(st, http.StatusNotFound, body, "after cancel")
}

func TestAdminRoutes(t *testing.T) {
    a := newAPI(t)
    promo := map[string]any{
        "code":            "spring10",
        "discount_type":   "PERCENTAGE",
        "discount_amount": "10",
        "valid_from":      time.Now().UTC().Format(time.RFC3339),
        "valid_until":     time.Now().UTC().AddDate(0, 1, 0).Format(time.RFC3339),
    }
    st, body := a.do(http.MethodPost, "/v1/admin/promo-codes", nil, promo)
    a.want(st, http.StatusUnauthorized, body, "anonymous")
    st, body = a.do(http.MethodPost, "/v1/admin/promo-codes", bearer(t, 3, "CUSTOMER"), promo)
    a.want(st, http.StatusForbidden, body, "customer")

    admin := bearer(t, 1, "ADMIN")
    st, body = a.do(http.MethodPost, "/v1/admin/promo-codes", admin, promo)
    a.want(st, http.StatusCreated, body, "create promo")
    if body["code"] != "SPRING10" {
        t.Fatalf("code = %v, want normalized SPRING10", body["code"])
    }
    st, body = a.do(http.MethodPost, "/v1/admin/promo-codes", admin, promo)
    a.want(st, http.StatusConflict, body, "duplicate promo")

    st, body = a.do(http.MethodPost, "/v1/admin/screenings", admin, map[string]any{"movie_id": 1})
    a.want(st, http.StatusBadRequest, body, "incomplete screening")

    path := fmt.Sprintf("/v1/admin/screenings/%d", a.fixture.Screening.ID)
    st, body = a.do(http.MethodDelete, path, admin, nil)
    a.want(st, http.StatusNoContent, body, "delete screening")
    st, body = a.do(http.MethodGet, fmt.Sprintf("/v1/screenings/%d", a.fixture.Screening.ID), nil, nil)
    a.want(st, http.StatusNotFound, body, "deleted screening")
}

func TestCatalogReads(t *testing.T) {
    a := newAPI(t)
    st, body := a.do(http.MethodGet, "/v1/screenings", nil, nil)
    a.want(st, http.StatusOK, body, "list")
    if items, _ := body["items"].([]any); len(items) != 1 {
        t.Fatalf("items = %v", body["items"])
    }
    st, body = a.do(http.MethodGet, "/v1/screenings/abc", nil, nil)
    a.want(st, http.StatusBadRequest, body, "bad id")
    st, body = a.do(http.MethodGet, "/v1/screenings/999/seats", nil, nil)
    a.want(st, http.StatusNotFound, body, "unknown screening")
    st, body = a.do(http.MethodGet, "/v1/concessions", nil, nil)
    a.want(st, http.StatusOK, body, "concessions")
    st, _ = a.do(http.MethodGet, "/healthz", nil, nil)
    if st != http.StatusOK {
        t.Fatalf("healthz = %d", st)
    }
}
