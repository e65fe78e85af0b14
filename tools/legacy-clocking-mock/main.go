package main

import (
	"encoding/json"
	"log"
	"net/http"
)

// A simple struct to capture the incoming clocking row
type ClockingRow struct {
	TerminalID    string `json:"terminal_id"`
	FingerprintID string `json:"finger_print_id"`
	DateLog       string `json:"date_log"`
	TimeLog       string `json:"time_log"`
	FunctionKey   int    `json:"function_key"`
	DateTime      string `json:"date_time"`
	StatusClock   string `json:"status_clock"`
}

func clockingHandler(w http.ResponseWriter, r *http.Request) {
	var row ClockingRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	log.Printf("Received clocking for %s: key=%d %s %s @ %s",
		row.FingerprintID, row.FunctionKey, row.DateLog, row.TimeLog, row.TerminalID)
	w.WriteHeader(http.StatusOK)
}

func main() {
	http.HandleFunc("/", clockingHandler)
	log.Println("Legacy clocking mock server starting on port 8081...")
	log.Fatal(http.ListenAndServe(":8081", nil))
}
