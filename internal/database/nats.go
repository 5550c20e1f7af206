package database

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// ConnectNATS dials the NATS server used for ops-review fan-out. An empty
// URL disables the connection; callers treat a nil conn as "no fan-out".
func ConnectNATS(url string, appName string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url, nats.Name(appName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return conn, nil
}
