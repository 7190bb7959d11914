package model

import "time"

// Show represents one scheduled screening of a movie. The show owns
// its seat ledger: the set of seat ids currently held or sold.
//
// Fields:
//  ID            – primary key identifier (uuid).
//  MovieID       – movie being screened.
//  StartTime     – when the screening begins (UTC).
//  Price         – ticket price in base currency units.
//  OccupiedSeats – seat ledger; a seat absent from the set is free.
//  Version       – bumped by every ledger write, used for compare-and-swap.
//  CreatedAt     – creation timestamp.
type Show struct {
	ID            string    `json:"id"`            // shows.id
	MovieID       string    `json:"movieId"`       // shows.movie_id
	StartTime     time.Time `json:"showDateTime"`  // shows.start_time
	Price         int64     `json:"showPrice"`     // shows.price
	OccupiedSeats SeatSet   `json:"occupiedSeats"` // shows.occupied_seats (JSON)
	Version       int64     `json:"-"`             // shows.version
	CreatedAt     time.Time `json:"createdAt"`     // shows.created_at
}

// ShowWithMovie is a show joined with the movie it screens.
type ShowWithMovie struct {
	Show
	Movie Movie `json:"movie"`
}
