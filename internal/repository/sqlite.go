package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/models"
)

// timeLayout is fixed width so stored timestamps compare correctly as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			event_date TEXT,
			event_time TEXT,
			location TEXT,
			template_id TEXT,
			participant_fields TEXT NOT NULL,
			checkin_enabled BOOLEAN DEFAULT 1,
			checkin_deadline TEXT,
			max_attendees INTEGER DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			category TEXT NOT NULL,
			fields TEXT NOT NULL,
			features TEXT,
			max_attendees INTEGER DEFAULT 0,
			duration_hours REAL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS checkins (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			name TEXT,
			email TEXT,
			data TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			accuracy REAL,
			ip_address TEXT,
			checked_in_at TEXT NOT NULL,
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_event ON checkins(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_deadline ON events(checkin_enabled, checkin_deadline)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	// Note: base_url is intentionally not set here - it's set by app.go
	// from config or the detected LAN IP address on startup
	return nil
}

func constraintCode(err error) sqlite3.ErrNoExtended {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode
	}
	return 0
}

func isUniqueViolation(err error) bool {
	code := constraintCode(err)
	return code == sqlite3.ErrConstraintPrimaryKey || code == sqlite3.ErrConstraintUnique
}

// ==================== Event Methods ====================

const eventColumns = `e.id, e.title, e.description, e.event_date, e.event_time, e.location, e.template_id,
	e.participant_fields, e.checkin_enabled, e.checkin_deadline, e.max_attendees, e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM checkins c WHERE c.event_id = e.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	var description, date, tm, location, templateID, deadline sql.NullString
	var fieldsJSON, createdAt, updatedAt string

	if err := row.Scan(&e.ID, &e.Title, &description, &date, &tm, &location, &templateID,
		&fieldsJSON, &e.CheckInEnabled, &deadline, &e.MaxAttendees, &createdAt, &updatedAt, &e.CheckInCount); err != nil {
		return nil, err
	}
	e.Description = description.String
	e.Date = date.String
	e.Time = tm.String
	e.Location = location.String
	e.TemplateID = templateID.String

	if err := json.Unmarshal([]byte(fieldsJSON), &e.ParticipantFields); err != nil {
		return nil, fmt.Errorf("event %s: decode participant fields: %w", e.ID, err)
	}
	if deadline.Valid && deadline.String != "" {
		d, err := parseTime(deadline.String)
		if err != nil {
			return nil, fmt.Errorf("event %s: parse deadline: %w", e.ID, err)
		}
		e.CheckInDeadline = &d
	}
	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("event %s: parse created_at: %w", e.ID, err)
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("event %s: parse updated_at: %w", e.ID, err)
	}
	return &e, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// CreateEvent inserts an event. CreatedAt and UpdatedAt are set when zero.
func (r *Repository) CreateEvent(ctx context.Context, e *models.Event) error {
	fieldsJSON, err := json.Marshal(e.ParticipantFields)
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (id, title, description, event_date, event_time, location, template_id,
			participant_fields, checkin_enabled, checkin_deadline, max_attendees, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, e.Date, e.Time, e.Location, e.TemplateID,
		string(fieldsJSON), e.CheckInEnabled, nullableTime(e.CheckInDeadline), e.MaxAttendees,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

// GetEvent retrieves an event with its check-in count
func (r *Repository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

// ListEvents returns every event, newest first
func (r *Repository) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events e ORDER BY e.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// UpdateEvent saves an event's details and deadline. Fields and the
// enabled flag have their own methods.
func (r *Repository) UpdateEvent(ctx context.Context, e *models.Event) error {
	e.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE events SET title = ?, description = ?, event_date = ?, event_time = ?, location = ?,
			checkin_deadline = ?, max_attendees = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.Description, e.Date, e.Time, e.Location,
		nullableTime(e.CheckInDeadline), e.MaxAttendees, formatTime(e.UpdatedAt), e.ID)
	return requireRow(result, err)
}

// ReplaceEventFields swaps an event's participant fields. It fails with
// ErrFieldsLocked once any check-in exists for the event.
func (r *Repository) ReplaceEventFields(ctx context.Context, id string, fields []forms.FieldDefinition) error {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var checkins int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(c.id) FROM events e LEFT JOIN checkins c ON c.event_id = e.id
		WHERE e.id = ? GROUP BY e.id`, id).Scan(&checkins)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if checkins > 0 {
		return ErrFieldsLocked
	}

	if _, err := tx.ExecContext(ctx, `UPDATE events SET participant_fields = ?, updated_at = ? WHERE id = ?`,
		string(fieldsJSON), formatTime(time.Now()), id); err != nil {
		return err
	}
	return tx.Commit()
}

// SetCheckInEnabled opens or closes check-in for an event
func (r *Repository) SetCheckInEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE events SET checkin_enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, formatTime(time.Now()), id)
	return requireRow(result, err)
}

// SetCheckInDeadline sets or, with nil, clears an event's deadline
func (r *Repository) SetCheckInDeadline(ctx context.Context, id string, deadline *time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE events SET checkin_deadline = ?, updated_at = ? WHERE id = ?`,
		nullableTime(deadline), formatTime(time.Now()), id)
	return requireRow(result, err)
}

// DeleteEvent deletes an event and its check-ins
func (r *Repository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return requireRow(result, err)
}

// ListExpiredOpenEvents returns the ids of events still open for check-in
// whose deadline is at or before now
func (r *Repository) ListExpiredOpenEvents(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM events
		WHERE checkin_enabled = 1 AND checkin_deadline IS NOT NULL AND checkin_deadline <= ?
		ORDER BY checkin_deadline`, formatTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func requireRow(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Check-in Methods ====================

// CreateCheckIn stores a check-in. The event must exist.
func (r *Repository) CreateCheckIn(ctx context.Context, c *models.CheckIn) error {
	var lat, lng, acc any
	if c.Location != nil {
		lat, lng, acc = c.Location.Latitude, c.Location.Longitude, c.Location.Accuracy
	}
	data := string(c.Data)
	if data == "" {
		data = "{}"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkins (id, event_id, name, email, data, latitude, longitude, accuracy, ip_address, checked_in_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.EventID, c.Name, c.Email, data, lat, lng, acc, c.IPAddress, formatTime(c.CheckedInAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		if constraintCode(err) == sqlite3.ErrConstraintForeignKey {
			return ErrNotFound
		}
	}
	return err
}

// ListCheckIns returns an event's check-ins, oldest first
func (r *Repository) ListCheckIns(ctx context.Context, eventID string) ([]models.CheckIn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, name, email, data, latitude, longitude, accuracy, ip_address, checked_in_at
		FROM checkins WHERE event_id = ? ORDER BY checked_in_at, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkins []models.CheckIn
	for rows.Next() {
		var c models.CheckIn
		var name, email, ip sql.NullString
		var data, checkedInAt string
		var lat, lng, acc sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.EventID, &name, &email, &data, &lat, &lng, &acc, &ip, &checkedInAt); err != nil {
			return nil, err
		}
		c.Name = name.String
		c.Email = email.String
		c.IPAddress = ip.String
		c.Data = json.RawMessage(data)
		if lat.Valid && lng.Valid {
			c.Location = &models.Location{Latitude: lat.Float64, Longitude: lng.Float64, Accuracy: acc.Float64}
		}
		if c.CheckedInAt, err = parseTime(checkedInAt); err != nil {
			return nil, fmt.Errorf("check-in %s: parse checked_in_at: %w", c.ID, err)
		}
		checkins = append(checkins, c)
	}
	return checkins, rows.Err()
}

// CountCheckIns returns how many check-ins an event has
func (r *Repository) CountCheckIns(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkins WHERE event_id = ?`, eventID).Scan(&count)
	return count, err
}

// GetCheckInStats summarizes an event's check-ins
func (r *Repository) GetCheckInStats(ctx context.Context, eventID string) (*models.CheckInStats, error) {
	stats := &models.CheckInStats{EventID: eventID}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN latitude IS NOT NULL AND longitude IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ip_address IS NULL OR ip_address = '' OR ip_address = ? THEN 1 ELSE 0 END), 0)
		FROM checkins WHERE event_id = ?`, models.UnknownIP, eventID).
		Scan(&stats.Total, &stats.WithLocation, &stats.UnknownIP)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ==================== Template Methods ====================

func scanTemplate(row rowScanner) (*forms.Template, error) {
	var t forms.Template
	var description, features sql.NullString
	var category, fieldsJSON, createdAt string

	if err := row.Scan(&t.ID, &t.Name, &description, &category, &fieldsJSON, &features,
		&t.MaxAttendees, &t.DurationHours, &createdAt); err != nil {
		return nil, err
	}
	t.Description = description.String
	t.Category = forms.Category(category)
	if err := json.Unmarshal([]byte(fieldsJSON), &t.Fields); err != nil {
		return nil, fmt.Errorf("template %s: decode fields: %w", t.ID, err)
	}
	if features.Valid && features.String != "" {
		if err := json.Unmarshal([]byte(features.String), &t.Features); err != nil {
			return nil, fmt.Errorf("template %s: decode features: %w", t.ID, err)
		}
	}
	return &t, nil
}

const templateColumns = `id, name, description, category, fields, features, max_attendees, duration_hours, created_at`

// ListTemplates returns the stored custom templates ordered by name
func (r *Repository) ListTemplates(ctx context.Context) ([]forms.Template, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []forms.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// GetTemplate retrieves a stored custom template
func (r *Repository) GetTemplate(ctx context.Context, id string) (*forms.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

func encodeTemplate(t *forms.Template) (fields, features string, err error) {
	f, err := json.Marshal(t.Fields)
	if err != nil {
		return "", "", err
	}
	ft, err := json.Marshal(t.Features)
	if err != nil {
		return "", "", err
	}
	return string(f), string(ft), nil
}

// CreateTemplate stores a custom template
func (r *Repository) CreateTemplate(ctx context.Context, t *forms.Template) error {
	fields, features, err := encodeTemplate(t)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, description, category, fields, features, max_attendees, duration_hours, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, string(t.Category), fields, features, t.MaxAttendees, t.DurationHours,
		formatTime(time.Now()))
	if isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

// UpdateTemplate saves a custom template
func (r *Repository) UpdateTemplate(ctx context.Context, t *forms.Template) error {
	fields, features, err := encodeTemplate(t)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE templates SET name = ?, description = ?, category = ?, fields = ?, features = ?,
			max_attendees = ?, duration_hours = ?
		WHERE id = ?`,
		t.Name, t.Description, string(t.Category), fields, features, t.MaxAttendees, t.DurationHours, t.ID)
	return requireRow(result, err)
}

// DeleteTemplate deletes a custom template. Events created from it keep
// their field snapshot.
func (r *Repository) DeleteTemplate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	return requireRow(result, err)
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ==================== Stats Methods ====================

// GetOverviewStats returns counts across every event
func (r *Repository) GetOverviewStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalEvents, openEvents int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN checkin_enabled = 1 THEN 1 ELSE 0 END), 0) FROM events`).
		Scan(&totalEvents, &openEvents); err != nil {
		return nil, err
	}
	stats["total_events"] = totalEvents
	stats["open_events"] = openEvents

	var totalCheckIns, withLocation int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN latitude IS NOT NULL THEN 1 ELSE 0 END), 0) FROM checkins`).
		Scan(&totalCheckIns, &withLocation); err != nil {
		return nil, err
	}
	stats["total_checkins"] = totalCheckIns
	stats["checkins_with_location"] = withLocation

	var totalTemplates int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&totalTemplates); err != nil {
		return nil, err
	}
	stats["custom_templates"] = totalTemplates

	return stats, nil
}

// ==================== Database Management Methods ====================

// validTables defines which tables can be safely cleared
var validTables = map[string]bool{
	"checkins": true, "events": true, "templates": true, "settings": true,
}

// ClearTable clears all data from a table
// Only allows clearing whitelisted tables to prevent SQL injection
func (r *Repository) ClearTable(ctx context.Context, table string) error {
	// Validate table name against whitelist
	if !validTables[table] {
		return ErrInvalidTable
	}

	// Safe to use string concatenation now that we've validated the table name
	_, err := r.db.ExecContext(ctx, "DELETE FROM "+table)
	return err
}
