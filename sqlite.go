package main

import (
	"database/sql"
	"fmt"

	"glimmer/capture"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func NewRepository() *capture.Repository {
	db, err := sql.Open("sqlite3", "file:glimmer.db")
	if err != nil {
		panic(fmt.Errorf("Couldn't open database:\n%w", err))
	}

	r, err := capture.NewRepository(db)
	if err != nil {
		panic(err)
	}
	return r
}
