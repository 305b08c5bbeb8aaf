package database

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// ConnectNATS dials the message broker. An empty URL is allowed and yields
// a nil connection; event publication then becomes a no-op.
func ConnectNATS(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url, nats.Name("aruna-lms-api"))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}

	return conn, nil
}
