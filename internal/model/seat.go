package model

// SeatClass distinguishes the two price tiers of a seat.
type SeatClass string

const (
    SeatClassStandard SeatClass = "STANDARD"
    SeatClassDeluxe   SeatClass = "DELUXE"
)

// Seat is one position in a screening's seat grid.  Reserved is the
// only field that says whether the seat can still be sold.
//
// Fields:
//  ID          – primary key identifier.
//  ScreeningID – screening the seat belongs to.
//  Label       – human label such as "C7", unique per screening.
//  RowNo       – zero-based row index.
//  ColNo       – one-based column number.
//  Class       – STANDARD or DELUXE.
//  Reserved    – true once a finalized reservation holds the seat.
type Seat struct {
    ID          uint64    `json:"id"`           // seats.id
    ScreeningID uint64    `json:"screening_id"` // seats.screening_id
    Label       string    `json:"label"`        // seats.label
    RowNo       int       `json:"row"`          // seats.row_no
    ColNo       int       `json:"col"`          // seats.col_no
    Class       SeatClass `json:"class"`        // seats.class
    Reserved    bool      `json:"reserved"`     // seats.reserved
}
