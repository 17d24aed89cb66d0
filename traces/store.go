package traces

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reusee/pyrun/pyvm"
	"github.com/reusee/pyrun/storages"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`create table if not exists sessions (
	id text primary key,
	name text not null,
	dialect text not null,
	started_at integer not null
)`,
	`create table if not exists events (
	session text not null references sessions(id),
	seq integer not null,
	kind text not null,
	code text not null,
	ip integer not null,
	opname text not null,
	operand text not null,
	line integer not null,
	depth integer not null,
	value text not null,
	primary key (session, seq)
)`,
}

// flushSize is the number of buffered events written per transaction.
const flushSize = 512

// Store keeps trace events in a sqlite database.
type Store struct {
	db *sql.DB
}

type SessionInfo struct {
	ID        string
	Name      string
	Dialect   string
	StartedAt time.Time
}

type Event struct {
	Seq     int
	Kind    string
	Code    string
	Offset  int
	Opname  string
	Operand string
	Line    int
	Depth   int
	Value   string
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}
	// sessions of parallel runs share one writer
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create trace tables: %w", err)
		}
	}
	return &Store{
		db: db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Session records the events of one run.
type Session struct {
	ID string

	store  *Store
	ctx    context.Context
	mu     sync.Mutex
	buffer []Event
	seq    int
	err    error
}

func (s *Store) NewSession(ctx context.Context, name string, dialect string) (*Session, error) {
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`insert into sessions (id, name, dialect, started_at) values (?, ?, ?, ?)`,
		id, name, dialect, time.Now().UnixNano(),
	); err != nil {
		return nil, fmt.Errorf("create trace session: %w", err)
	}
	return &Session{
		ID:    id,
		store: s,
		ctx:   ctx,
	}, nil
}

// Tracer buffers events and writes them in batches. A write failure stops tracing.
func (s *Session) Tracer() pyvm.Tracer {
	return func(ev *pyvm.TraceEvent) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return false
		}
		s.seq++
		event := Event{
			Seq:     s.seq,
			Kind:    ev.Kind.String(),
			Code:    codeName(ev),
			Offset:  ev.Offset,
			Opname:  ev.Opname,
			Operand: operandString(ev.Operand),
			Line:    ev.Line,
			Depth:   ev.Depth,
		}
		if ev.Value != nil {
			event.Value = pyvm.Describe(ev.Value)
		}
		s.buffer = append(s.buffer, event)
		if len(s.buffer) >= flushSize {
			s.err = s.flush()
		}
		return s.err == nil
	}
}

func (s *Session) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}
	err := storages.WithTx(s.ctx, s.store.db, func(tx storages.Tx) error {
		for _, event := range s.buffer {
			if _, err := tx.Exec(s.ctx,
				`insert into events (session, seq, kind, code, ip, opname, operand, line, depth, value)
				values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				s.ID, event.Seq, event.Kind, event.Code, event.Offset, event.Opname,
				event.Operand, event.Line, event.Depth, event.Value,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write trace events: %w", err)
	}
	s.buffer = s.buffer[:0]
	return nil
}

// Flush writes buffered events.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.err = s.flush()
	return s.err
}

func (s *Store) Sessions(ctx context.Context) (ret []SessionInfo, err error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, dialect, started_at from sessions order by started_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var info SessionInfo
		var startedAt int64
		if err := rows.Scan(&info.ID, &info.Name, &info.Dialect, &startedAt); err != nil {
			return nil, err
		}
		info.StartedAt = time.Unix(0, startedAt)
		ret = append(ret, info)
	}
	return ret, rows.Err()
}

func (s *Store) Events(ctx context.Context, session string) (ret []Event, err error) {
	rows, err := s.db.QueryContext(ctx,
		`select seq, kind, code, ip, opname, operand, line, depth, value
		from events where session = ? order by seq`,
		session,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var event Event
		if err := rows.Scan(
			&event.Seq, &event.Kind, &event.Code, &event.Offset, &event.Opname,
			&event.Operand, &event.Line, &event.Depth, &event.Value,
		); err != nil {
			return nil, err
		}
		ret = append(ret, event)
	}
	return ret, rows.Err()
}
