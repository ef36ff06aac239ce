// Package control defines the JSON wire types spoken over the daemon's
// unix control socket. One request line in, one JSON response out.
package control

import "time"

type Request struct {
	Op   string `json:"op"`
	Text string `json:"text,omitempty"`
}

type Status struct {
	Running     bool         `json:"running"`
	UptimeSec   float64      `json:"uptime_sec"`
	Listening   bool         `json:"listening"`
	Engine      string       `json:"engine"`
	Transcripts []Transcript `json:"transcripts"`
}

type SimpleResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type Transcript struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
