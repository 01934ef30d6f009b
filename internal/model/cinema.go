package model

// Cinema is the catalog's description of an auditorium.  Only the seat
// grid configuration matters to the booking engine: it is used once, when
// a screening is created, to generate that screening's seats.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name.
//  SeatRows   – number of rows in the grid.
//  SeatCols   – number of seats per row.
//  DeluxeRows – how many of the rearmost rows are DELUXE.
type Cinema struct {
    ID         uint64 // cinemas.id
    Name       string // cinemas.name
    SeatRows   int    // cinemas.seat_rows
    SeatCols   int    // cinemas.seat_cols
    DeluxeRows int    // cinemas.deluxe_rows
}

// Movie is the minimal catalog entry referenced by a screening.
type Movie struct {
    ID          uint64 // movies.id
    Title       string // movies.title
    DurationMin int    // movies.duration_min
}
