package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ticketAlphabet leaves out I, O, 0 and 1 so codes survive being read
// aloud at the door.
const ticketAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// TicketCode returns a random code of the form TKT-XXXXX-XXXXX.
func TicketCode() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("TKT-")
	for i, v := range buf {
		if i == 5 {
			b.WriteByte('-')
		}
		b.WriteByte(ticketAlphabet[int(v)%len(ticketAlphabet)])
	}
	return b.String(), nil
}

// TransactionRef returns a payment reference such as TXN_1700000000_1A2B3C4D.
func TransactionRef(at time.Time) string {
	return fmt.Sprintf("TXN_%d_%s", at.Unix(), strings.ToUpper(uuid.NewString()[:8]))
}
