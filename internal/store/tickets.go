package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/turnstile/internal/ticket"
)

// Owner is a ticket holder.
type Owner struct {
	ID    string
	Email string
	Phone string
	Name  string
}

// PutOwner inserts or updates an owner. Empty fields leave the stored value
// unchanged.
func (s *Store) PutOwner(ctx context.Context, o Owner) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO owners (owner_id, email, phone, name)
		VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT(owner_id) DO UPDATE SET
			email = COALESCE(excluded.email, owners.email),
			phone = COALESCE(excluded.phone, owners.phone),
			name  = COALESCE(excluded.name, owners.name)
	`, o.ID, o.Email, o.Phone, o.Name)
	if err != nil {
		return fmt.Errorf("put owner %s: %w", o.ID, err)
	}
	return nil
}

// ReadOwner retrieves one owner by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadOwner(ctx context.Context, id string) (Owner, error) {
	var o Owner
	var email, phone, name sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id, email, phone, name FROM owners WHERE owner_id = ?
	`, id).Scan(&o.ID, &email, &phone, &name)
	if err != nil {
		return Owner{}, err
	}
	o.Email, o.Phone, o.Name = email.String, phone.String, name.String
	return o, nil
}

// PutTicket inserts or replaces a ticket. An owner row is created for an
// owner id the store has not seen.
func (s *Store) PutTicket(ctx context.Context, t ticket.Ticket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put ticket: begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := putTicketTx(ctx, tx, t); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put ticket: commit: %w", err)
	}
	return nil
}

// ImportTickets writes every ticket in one transaction. Either all tickets
// are stored or none are.
func (s *Store) ImportTickets(ctx context.Context, tickets []ticket.Ticket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import tickets: begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tickets {
		if err := putTicketTx(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import tickets: commit: %w", err)
	}
	return nil
}

func putTicketTx(ctx context.Context, tx *sql.Tx, t ticket.Ticket) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO owners (owner_id) VALUES (?) ON CONFLICT(owner_id) DO NOTHING
	`, t.OwnerID); err != nil {
		return fmt.Errorf("put ticket %s: owner: %w", t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tickets (ticket_id, owner_id, category)
		VALUES (?, ?, ?)
		ON CONFLICT(ticket_id) DO UPDATE SET
			owner_id = excluded.owner_id,
			category = excluded.category
	`, t.ID, t.OwnerID, string(t.Category)); err != nil {
		return fmt.Errorf("put ticket %s: %w", t.ID, err)
	}
	return nil
}

// LoadTickets returns every stored ticket ordered by id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) LoadTickets(ctx context.Context) ([]ticket.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticket_id, owner_id, category
		FROM tickets
		ORDER BY ticket_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []ticket.Ticket{}
	for rows.Next() {
		var t ticket.Ticket
		var category string
		if err := rows.Scan(&t.ID, &t.OwnerID, &category); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		t.Category, err = ticket.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("ticket %s: %w", t.ID, err)
		}
		tickets = append(tickets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}

// Directory builds a ticket directory from the stored tickets.
func (s *Store) Directory(ctx context.Context) (*ticket.Directory, error) {
	tickets, err := s.LoadTickets(ctx)
	if err != nil {
		return nil, err
	}
	return ticket.NewDirectory(tickets)
}
