package model

import (
    "encoding/json"
    "errors"
    "fmt"
)

// Purchaser identifies who a reservation belongs to.  It is either a
// RegisteredUser or a Guest and nothing else; the unexported marker method
// keeps other packages from adding variants.
type Purchaser interface {
    purchaser()
}

// RegisteredUser is a purchaser with an account.
type RegisteredUser struct {
    UserID uint64 `json:"user_id"`
}

// Guest is a purchaser without an account, identified by contact details.
type Guest struct {
    Name  string `json:"name"`
    Email string `json:"email"`
    Phone string `json:"phone"`
}

func (RegisteredUser) purchaser() {}
func (Guest) purchaser()          {}

const (
    purchaserRegistered = "registered"
    purchaserGuest      = "guest"
)

// purchaserJSON is the wire form of a Purchaser.
type purchaserJSON struct {
    Kind   string `json:"kind"`
    UserID uint64 `json:"user_id,omitempty"`
    Name   string `json:"name,omitempty"`
    Email  string `json:"email,omitempty"`
    Phone  string `json:"phone,omitempty"`
}

// MarshalPurchaser encodes p with an explicit kind tag.
func MarshalPurchaser(p Purchaser) ([]byte, error) {
    switch v := p.(type) {
    case RegisteredUser:
        return json.Marshal(purchaserJSON{Kind: purchaserRegistered, UserID: v.UserID})
    case Guest:
        return json.Marshal(purchaserJSON{Kind: purchaserGuest, Name: v.Name, Email: v.Email, Phone: v.Phone})
    case nil:
        return []byte("null"), nil
    }
    return nil, fmt.Errorf("unknown purchaser %T", p)
}

// UnmarshalPurchaser is the inverse of MarshalPurchaser.
func UnmarshalPurchaser(b []byte) (Purchaser, error) {
    if string(b) == "null" {
        return nil, nil
    }
    var pj purchaserJSON
    if err := json.Unmarshal(b, &pj); err != nil {
        return nil, err
    }
    switch pj.Kind {
    case purchaserRegistered:
        return RegisteredUser{UserID: pj.UserID}, nil
    case purchaserGuest:
        return Guest{Name: pj.Name, Email: pj.Email, Phone: pj.Phone}, nil
    }
    return nil, errors.New("purchaser: unknown kind " + pj.Kind)
}
