// Package audit writes and queries rows of the audit_event table. No
// Vault/OrderBook/Market operation calls Event, so the table holds only the
// rows that callers of this package write themselves.
package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/thrasher-corp/perpvault/database"
)

// Record is one row of the audit_event table.
type Record struct {
	Type       string
	Identifier string
	Message    string
	CreatedAt  time.Time
}

// Event records an audit row. Failures are swallowed: audit logging must
// never abort the settlement operation that triggered it.
func Event(eventType, identifier, message string) {
	if database.DB == nil || database.DB.SQL == nil {
		return
	}
	_, _ = database.DB.SQL.Exec(
		`INSERT INTO audit_event (type, identifier, message, created_at) VALUES (?, ?, ?, ?)`,
		eventType, identifier, message, time.Now().UTC(),
	)
}

// GetEvent returns audit rows created in [start, end], ordered by
// created_at ("asc" or "desc"), capped at limit rows.
func GetEvent(start, end time.Time, sort string, limit int) ([]Record, error) {
	order := "ASC"
	if strings.EqualFold(sort, "desc") {
		order = "DESC"
	}
	if database.DB == nil || database.DB.SQL == nil {
		return nil, nil
	}
	rows, err := database.DB.SQL.Query(
		fmt.Sprintf(`SELECT type, identifier, message, created_at FROM audit_event
			WHERE created_at BETWEEN ? AND ? ORDER BY created_at %s LIMIT ?`, order),
		start.UTC(), end.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query failed: %w", err)
	}
	defer rows.Close()

	var events []Record
	for rows.Next() {
		var e Record
		if err := rows.Scan(&e.Type, &e.Identifier, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan failed: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
