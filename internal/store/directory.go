package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// sanitizer strips markup from stored email bodies.
var sanitizer = bluemonday.StrictPolicy()

// searchClause builds "(lower(f1) LIKE ? OR ...)" ORed across every
// token of the query with two or more characters, with the matching
// argument list. An empty token list falls back to the whole query so
// short lookups still match.
func searchClause(query string, fields ...string) (string, []any) {
	var tokens []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(t)) >= 2 {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		tokens = []string{strings.ToLower(strings.TrimSpace(query))}
	}

	var conds []string
	var args []any
	for _, tok := range tokens {
		for _, f := range fields {
			conds = append(conds, "lower("+f+") LIKE ?")
			args = append(args, "%"+tok+"%")
		}
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}

func (s *Store) SearchPeople(ctx context.Context, userID, query string, limit int) ([]Person, error) {
	clause, args := searchClause(query, "name", "email", "company")
	q := `SELECT id, user_id, name, COALESCE(email,''), COALESCE(phone,''), COALESCE(company,''), COALESCE(city,''), created_at
		FROM people WHERE user_id = ? AND ` + clause + ` LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.Company, &p.City, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) PersonByEmail(ctx context.Context, userID, email string) (*Person, error) {
	q := `SELECT id, user_id, name, COALESCE(email,''), COALESCE(phone,''), COALESCE(company,''), COALESCE(city,''), created_at
		FROM people WHERE user_id = ? AND lower(email) = lower(?)`
	var p Person
	err := s.DB.QueryRowContext(ctx, q, userID, email).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.Company, &p.City, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePerson(ctx context.Context, p *Person) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	q := `INSERT INTO people (id, user_id, name, email, phone, company, city, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, p.ID, p.UserID, p.Name, p.Email, p.Phone, p.Company, p.City, p.CreatedAt)
	return err
}

func (s *Store) SearchEvents(ctx context.Context, userID, query string, limit int) ([]Event, error) {
	clause, args := searchClause(query, "title", "description", "location")
	q := `SELECT id, user_id, title, COALESCE(description,''), COALESCE(location,''), starts_at, ends_at
		FROM events WHERE user_id = ? AND ` + clause + ` LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateEvent(ctx context.Context, e *Event) error {
	q := `INSERT INTO events (id, user_id, title, description, location, starts_at, ends_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, e.ID, e.UserID, e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt)
	return err
}

// EventsBetween returns events starting in [from, to), soonest first.
func (s *Store) EventsBetween(ctx context.Context, userID string, from, to time.Time) ([]Event, error) {
	q := `SELECT id, user_id, title, COALESCE(description,''), COALESCE(location,''), starts_at, ends_at
		FROM events WHERE user_id = ? AND starts_at >= ? AND starts_at < ? ORDER BY starts_at`
	rows, err := s.DB.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SearchTasks(ctx context.Context, userID, query string, limit int) ([]Task, error) {
	clause, args := searchClause(query, "title", "description")
	q := `SELECT id, user_id, title, COALESCE(description,''), status, COALESCE(priority,''), due_at
		FROM tasks WHERE user_id = ? AND ` + clause + ` LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var due sql.NullTime
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.Priority, &due); err != nil {
			return nil, err
		}
		if due.Valid {
			t.DueAt = &due.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	q := `INSERT INTO tasks (id, user_id, title, description, status, priority, due_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	var due any
	if t.DueAt != nil {
		due = *t.DueAt
	}
	_, err := s.DB.ExecContext(ctx, q, t.ID, t.UserID, t.Title, t.Description, t.Status, t.Priority, due)
	return err
}

func (s *Store) CompleteTask(ctx context.Context, userID, taskID string) error {
	q := `UPDATE tasks SET status = 'done' WHERE user_id = ? AND id = ?`
	res, err := s.DB.ExecContext(ctx, q, userID, taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) SearchEmails(ctx context.Context, userID, query string, limit int) ([]EmailMessage, error) {
	clause, args := searchClause(query, "subject", "sender", "body")
	q := `SELECT id, user_id, subject, COALESCE(sender,''), COALESCE(recipient,''), COALESCE(body,''), received_at
		FROM emails WHERE user_id = ? AND ` + clause + ` ORDER BY received_at DESC LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmailMessage
	for rows.Next() {
		var m EmailMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Subject, &m.Sender, &m.Recipient, &m.Body, &m.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddEmail stores a message. Bodies are run through a strict HTML
// sanitizer so stored text is markup free.
func (s *Store) AddEmail(ctx context.Context, m *EmailMessage) error {
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now()
	}
	body := strings.TrimSpace(sanitizer.Sanitize(m.Body))
	q := `INSERT INTO emails (id, user_id, subject, sender, recipient, body, received_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, m.ID, m.UserID, m.Subject, m.Sender, m.Recipient, body, m.ReceivedAt)
	return err
}

func (s *Store) SearchPlaces(ctx context.Context, userID, query string, limit int) ([]Place, error) {
	clause, args := searchClause(query, "name", "address", "category")
	q := `SELECT id, user_id, name, COALESCE(address,''), COALESCE(city,''), COALESCE(category,'')
		FROM places WHERE user_id = ? AND ` + clause + ` LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Address, &p.City, &p.Category); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreatePlace(ctx context.Context, p *Place) error {
	q := `INSERT INTO places (id, user_id, name, address, city, category) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, p.ID, p.UserID, p.Name, p.Address, p.City, p.Category)
	return err
}

func (s *Store) SearchDeadlines(ctx context.Context, userID, query string, limit int) ([]Deadline, error) {
	clause, args := searchClause(query, "title", "description")
	q := `SELECT id, user_id, title, COALESCE(description,''), due_at, status
		FROM deadlines WHERE user_id = ? AND ` + clause + ` ORDER BY due_at LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deadline
	for rows.Next() {
		var d Deadline
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.Description, &d.DueAt, &d.Status); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDeadline(ctx context.Context, d *Deadline) error {
	q := `INSERT INTO deadlines (id, user_id, title, description, due_at, status) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, d.ID, d.UserID, d.Title, d.Description, d.DueAt, d.Status)
	return err
}

func (s *Store) SearchRoutines(ctx context.Context, userID, query string, limit int) ([]Routine, error) {
	clause, args := searchClause(query, "title", "description")
	q := `SELECT id, user_id, title, COALESCE(description,''), COALESCE(cadence,'')
		FROM routines WHERE user_id = ? AND ` + clause + ` LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Routine
	for rows.Next() {
		var r Routine
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.Cadence); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateRoutine(ctx context.Context, r *Routine) error {
	q := `INSERT INTO routines (id, user_id, title, description, cadence) VALUES (?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, r.ID, r.UserID, r.Title, r.Description, r.Cadence)
	return err
}

func (s *Store) SearchOpenLoops(ctx context.Context, userID, query string, limit int) ([]OpenLoop, error) {
	clause, args := searchClause(query, "title", "description", "waiting_on")
	q := `SELECT id, user_id, title, COALESCE(description,''), status, COALESCE(waiting_on,'')
		FROM open_loops WHERE user_id = ? AND ` + clause + ` LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OpenLoop
	for rows.Next() {
		var ol OpenLoop
		if err := rows.Scan(&ol.ID, &ol.UserID, &ol.Title, &ol.Description, &ol.Status, &ol.WaitingOn); err != nil {
			return nil, err
		}
		out = append(out, ol)
	}
	return out, rows.Err()
}

func (s *Store) CreateOpenLoop(ctx context.Context, ol *OpenLoop) error {
	q := `INSERT INTO open_loops (id, user_id, title, description, status, waiting_on) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, ol.ID, ol.UserID, ol.Title, ol.Description, ol.Status, ol.WaitingOn)
	return err
}

func (s *Store) SearchProjects(ctx context.Context, userID, query string, limit int) ([]Project, error) {
	clause, args := searchClause(query, "name", "description")
	q := `SELECT id, user_id, name, COALESCE(description,''), status
		FROM projects WHERE user_id = ? AND ` + clause + ` LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Status); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	q := `INSERT INTO projects (id, user_id, name, description, status) VALUES (?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, p.ID, p.UserID, p.Name, p.Description, p.Status)
	return err
}

func (s *Store) SearchNotes(ctx context.Context, userID, query string, limit int) ([]Note, error) {
	clause, args := searchClause(query, "title", "body")
	q := `SELECT id, user_id, title, COALESCE(body,''), created_at
		FROM notes WHERE user_id = ? AND ` + clause + ` ORDER BY created_at DESC LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, q, append(append([]any{userID}, args...), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CreateNote(ctx context.Context, n *Note) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	q := `INSERT INTO notes (id, user_id, title, body, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, n.ID, n.UserID, n.Title, n.Body, n.CreatedAt)
	return err
}
