// Package sqlite provides a durable core.EntityStore backed by SQLite.
//
// It uses the pure-Go modernc.org/sqlite driver, so no cgo toolchain is
// needed. The schema is applied from embedded migrations on Open.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/sqlite/migrations"
)

// Options configures a Store.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

// Store persists agents, projects, memory and knowledge in SQLite.
type Store struct {
	db   *sql.DB
	opts Options
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string, optFns ...func(o *Options)) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	opts := Options{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, opts: opts}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func limitClause(opts core.ListOptions) string {
	if opts.Limit > 0 {
		return fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	return ""
}

const agentColumns = `id, name, rank, faction, status, access_tier, personality_text, project_id, voice_profile, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (core.Agent, error) {
	var (
		a                core.Agent
		rank             string
		created, updated int64
	)
	if err := row.Scan(&a.ID, &a.Name, &rank, &a.Faction, &a.Status, &a.AccessTier,
		&a.PersonalityText, &a.ProjectID, &a.VoiceProfile, &created, &updated); err != nil {
		return core.Agent{}, err
	}
	a.Rank = core.ParseRank(rank)
	a.CreatedAt, a.UpdatedAt = fromMillis(created), fromMillis(updated)
	return a, nil
}

// ListAgents returns agents newest first.
func (s *Store) ListAgents(ctx context.Context, opts core.ListOptions) ([]core.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY created_at DESC, rowid DESC`+limitClause(opts))
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []core.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAgent returns the agent or core.ErrAgentNotFound.
func (s *Store) GetAgent(ctx context.Context, id string) (core.Agent, error) {
	a, err := scanAgent(s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Agent{}, fmt.Errorf("agent %q: %w", id, core.ErrAgentNotFound)
	}
	if err != nil {
		return core.Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// CreateAgent stores a new agent, assigning id and timestamps.
func (s *Store) CreateAgent(ctx context.Context, a core.Agent) (core.Agent, error) {
	if strings.TrimSpace(a.Name) == "" {
		return core.Agent{}, fmt.Errorf("agent name is required: %w", core.ErrInvalidRecord)
	}
	s.stamp(&a.ID, &a.CreatedAt)
	a.UpdatedAt = a.CreatedAt
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (`+agentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Rank.String(), a.Faction, a.Status, a.AccessTier,
		a.PersonalityText, a.ProjectID, a.VoiceProfile, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Agent{}, fmt.Errorf("agent %q already exists: %w", a.ID, core.ErrInvalidRecord)
		}
		return core.Agent{}, fmt.Errorf("create agent: %w", err)
	}
	return a, nil
}

// UpdateAgent applies patch with a single UPDATE statement.
func (s *Store) UpdateAgent(ctx context.Context, id string, patch core.AgentPatch) (core.Agent, error) {
	current, err := s.GetAgent(ctx, id)
	if err != nil {
		return core.Agent{}, err
	}
	updated := patch.Apply(current)
	if strings.TrimSpace(updated.Name) == "" {
		return core.Agent{}, fmt.Errorf("agent name is required: %w", core.ErrInvalidRecord)
	}
	updated.UpdatedAt = fromMillis(toMillis(s.opts.Now()))

	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET name = ?, rank = ?, faction = ?, status = ?, access_tier = ?,
		   personality_text = ?, project_id = ?, voice_profile = ?, updated_at = ?
		 WHERE id = ?`,
		updated.Name, updated.Rank.String(), updated.Faction, updated.Status, updated.AccessTier,
		updated.PersonalityText, updated.ProjectID, updated.VoiceProfile, toMillis(updated.UpdatedAt), id,
	)
	if err != nil {
		return core.Agent{}, fmt.Errorf("update agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Agent{}, fmt.Errorf("agent %q: %w", id, core.ErrAgentNotFound)
	}
	return updated, nil
}

// DeleteAgent removes the agent or returns core.ErrAgentNotFound.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("agent %q: %w", id, core.ErrAgentNotFound)
	}
	return nil
}

const projectColumns = `id, name, objective, personality_text, core_principles, briefing, status, agent_id, created_at`

func scanProject(row scanner) (core.Project, error) {
	var (
		p          core.Project
		principles string
		created    int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Objective, &p.PersonalityText, &principles,
		&p.Briefing, &p.Status, &p.AgentID, &created); err != nil {
		return core.Project{}, err
	}
	if err := json.Unmarshal([]byte(principles), &p.CorePrinciples); err != nil {
		return core.Project{}, fmt.Errorf("decode core principles: %w", err)
	}
	p.CreatedAt = fromMillis(created)
	return p, nil
}

// ListProjects returns projects newest first.
func (s *Store) ListProjects(ctx context.Context, opts core.ListOptions) ([]core.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, rowid DESC`+limitClause(opts))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProject returns the project or core.ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (core.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, fmt.Errorf("project %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// CreateProject stores a new project.
func (s *Store) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Objective) == "" {
		return core.Project{}, fmt.Errorf("project name and objective are required: %w", core.ErrInvalidRecord)
	}
	s.stamp(&p.ID, &p.CreatedAt)
	if p.CorePrinciples == nil {
		p.CorePrinciples = []string{}
	}
	principles, err := json.Marshal(p.CorePrinciples)
	if err != nil {
		return core.Project{}, fmt.Errorf("encode core principles: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Objective, p.PersonalityText, string(principles),
		p.Briefing, p.Status, p.AgentID, toMillis(p.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Project{}, fmt.Errorf("project %q already exists: %w", p.ID, core.ErrInvalidRecord)
		}
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// SetProjectBriefing replaces the stored briefing.
func (s *Store) SetProjectBriefing(ctx context.Context, id, briefing string) (core.Project, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET briefing = ? WHERE id = ?`, briefing, id)
	if err != nil {
		return core.Project{}, fmt.Errorf("set project briefing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Project{}, fmt.Errorf("project %q: %w", id, core.ErrNotFound)
	}
	return s.GetProject(ctx, id)
}

const memoryColumns = `id, agent_id, session_id, user_message, agent_reply, timestamp`

func (s *Store) queryMemory(ctx context.Context, query string, args ...any) ([]core.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memory: %w", err)
	}
	defer rows.Close()

	var out []core.MemoryEntry
	for rows.Next() {
		var (
			e  core.MemoryEntry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.AgentID, &e.SessionID, &e.UserMessage, &e.AgentReply, &ts); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListMemory returns the most recent entries across all agents, newest first.
func (s *Store) ListMemory(ctx context.Context, opts core.ListOptions) ([]core.MemoryEntry, error) {
	return s.queryMemory(ctx, `SELECT `+memoryColumns+` FROM memory_entries ORDER BY timestamp DESC, rowid DESC`+limitClause(opts))
}

// FilterMemory returns the entries of one agent, newest first.
func (s *Store) FilterMemory(ctx context.Context, agentID string, opts core.ListOptions) ([]core.MemoryEntry, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required: %w", core.ErrInvalidRecord)
	}
	return s.queryMemory(ctx, `SELECT `+memoryColumns+` FROM memory_entries WHERE agent_id = ? ORDER BY timestamp DESC, rowid DESC`+limitClause(opts), agentID)
}

// AppendMemory inserts an immutable entry.
func (s *Store) AppendMemory(ctx context.Context, e core.MemoryEntry) (core.MemoryEntry, error) {
	if e.ID == "" || e.AgentID == "" {
		return core.MemoryEntry{}, fmt.Errorf("memory entry id and agent id are required: %w", core.ErrInvalidRecord)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.opts.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_entries (`+memoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.AgentID, e.SessionID, e.UserMessage, e.AgentReply, toMillis(e.Timestamp),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.MemoryEntry{}, fmt.Errorf("memory entry %s already exists: %w", e.ID, core.ErrInvalidRecord)
		}
		return core.MemoryEntry{}, fmt.Errorf("append memory: %w", err)
	}
	e.Timestamp = fromMillis(toMillis(e.Timestamp))
	return e, nil
}

// PurgeMemory deletes every entry of agentID and returns how many were removed.
func (s *Store) PurgeMemory(ctx context.Context, agentID string) (int, error) {
	if agentID == "" {
		return 0, fmt.Errorf("agent id is required: %w", core.ErrInvalidRecord)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE agent_id = ?`, agentID)
	if err != nil {
		return 0, fmt.Errorf("purge memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge memory: %w", err)
	}
	return int(n), nil
}

// ListKnowledge returns fragments newest first.
func (s *Store) ListKnowledge(ctx context.Context, opts core.ListOptions) ([]core.KnowledgeFragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, category, authority_level, created_at
		 FROM knowledge_fragments ORDER BY created_at DESC, rowid DESC`+limitClause(opts))
	if err != nil {
		return nil, fmt.Errorf("list knowledge: %w", err)
	}
	defer rows.Close()

	var out []core.KnowledgeFragment
	for rows.Next() {
		var (
			k       core.KnowledgeFragment
			created int64
		)
		if err := rows.Scan(&k.ID, &k.Title, &k.Content, &k.Category, &k.AuthorityLevel, &created); err != nil {
			return nil, fmt.Errorf("scan knowledge: %w", err)
		}
		k.CreatedAt = fromMillis(created)
		out = append(out, k)
	}
	return out, rows.Err()
}

// CreateKnowledge stores a fragment.
func (s *Store) CreateKnowledge(ctx context.Context, k core.KnowledgeFragment) (core.KnowledgeFragment, error) {
	if strings.TrimSpace(k.Title) == "" || strings.TrimSpace(k.Content) == "" {
		return core.KnowledgeFragment{}, fmt.Errorf("knowledge title and content are required: %w", core.ErrInvalidRecord)
	}
	s.stamp(&k.ID, &k.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_fragments (id, title, content, category, authority_level, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		k.ID, k.Title, k.Content, k.Category, k.AuthorityLevel, toMillis(k.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.KnowledgeFragment{}, fmt.Errorf("knowledge %q already exists: %w", k.ID, core.ErrInvalidRecord)
		}
		return core.KnowledgeFragment{}, fmt.Errorf("create knowledge: %w", err)
	}
	return k, nil
}

// DeleteKnowledge removes a fragment.
func (s *Store) DeleteKnowledge(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_fragments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete knowledge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("knowledge %q: %w", id, core.ErrNotFound)
	}
	return nil
}

// stamp fills a missing id and creation time. Stored times have millisecond
// precision, so the returned record is truncated to match.
func (s *Store) stamp(id *string, created *time.Time) {
	if strings.TrimSpace(*id) == "" {
		*id = s.opts.NewID()
	}
	if created.IsZero() {
		*created = s.opts.Now()
	}
	*created = fromMillis(toMillis(*created))
}

var _ core.EntityStore = (*Store)(nil)
