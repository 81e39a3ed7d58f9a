package hunt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeFormat matches SQLite's strftime('%Y-%m-%dT%H:%M:%fZ', 'now').
const timeFormat = "2006-01-02T15:04:05.000Z"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is the SQLite-backed Store. Atomic wraps fn in one
// transaction; SQLite's single-writer model makes that serializable.
type SQLStore struct {
	sqlOps
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{sqlOps: sqlOps{q: db}, db: db}
}

func (s *SQLStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{sqlOps{q: tx}}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore runs inside an open transaction; a nested Atomic joins it.
type txStore struct {
	sqlOps
}

func (t *txStore) Atomic(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}

// sqlOps holds every table operation, shared by SQLStore and txStore.
type sqlOps struct {
	q querier
}

func mapSQLError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

func fmtTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func (o sqlOps) NextID(ctx context.Context, kind Kind) (int64, error) {
	var id int64
	err := o.q.QueryRowContext(ctx, `
		INSERT INTO id_counters (kind, value) VALUES (?, 1)
		ON CONFLICT(kind) DO UPDATE SET value = value + 1
		RETURNING value
	`, string(kind)).Scan(&id)
	return id, err
}

// Games

func (o sqlOps) InsertGame(ctx context.Context, g Game) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO games (id, code, name, status, created_at, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.Code, g.Name, string(g.Status), fmtTime(g.CreatedAt),
		fmtTimePtr(g.StartedAt), fmtTimePtr(g.EndedAt))
	return mapSQLError(err)
}

func (o sqlOps) scanGame(row *sql.Row) (Game, error) {
	var g Game
	var status, createdAt string
	var startedAt, endedAt sql.NullString
	err := row.Scan(&g.ID, &g.Code, &g.Name, &status, &createdAt, &startedAt, &endedAt)
	if err != nil {
		return Game{}, mapSQLError(err)
	}
	g.Status = GameStatus(status)
	g.CreatedAt = parseTime(createdAt)
	g.StartedAt = parseTimePtr(startedAt)
	g.EndedAt = parseTimePtr(endedAt)
	return g, nil
}

const gameColumns = `id, code, name, status, created_at, started_at, ended_at`

func (o sqlOps) GameByID(ctx context.Context, id int64) (Game, error) {
	return o.scanGame(o.q.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
}

func (o sqlOps) GameByCode(ctx context.Context, code string) (Game, error) {
	return o.scanGame(o.q.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE code = ?`, code))
}

func (o sqlOps) UpdateGame(ctx context.Context, g Game) error {
	result, err := o.q.ExecContext(ctx, `
		UPDATE games SET code = ?, name = ?, status = ?, started_at = ?, ended_at = ?
		WHERE id = ?
	`, g.Code, g.Name, string(g.Status), fmtTimePtr(g.StartedAt), fmtTimePtr(g.EndedAt), g.ID)
	if err != nil {
		return mapSQLError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (o sqlOps) DeleteGame(ctx context.Context, id int64) error {
	_, err := o.q.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	return err
}

func (o sqlOps) ListGames(ctx context.Context) ([]Game, error) {
	rows, err := o.q.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		var status, createdAt string
		var startedAt, endedAt sql.NullString
		if err := rows.Scan(&g.ID, &g.Code, &g.Name, &status, &createdAt, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		g.Status = GameStatus(status)
		g.CreatedAt = parseTime(createdAt)
		g.StartedAt = parseTimePtr(startedAt)
		g.EndedAt = parseTimePtr(endedAt)
		games = append(games, g)
	}
	return games, rows.Err()
}

// Checkpoints

const checkpointColumns = `id, game_id, tag_code, order_index, location_name, clue,
	is_active, lat, lon, accuracy_m, activated_by, activated_at, created_at`

func (o sqlOps) InsertCheckpoint(ctx context.Context, c Checkpoint) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO checkpoints (`+checkpointColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.GameID, c.TagCode, c.OrderIndex, c.LocationName, c.Clue,
		c.IsActive, c.Lat, c.Lon, c.AccuracyM, c.ActivatedBy,
		fmtTimePtr(c.ActivatedAt), fmtTime(c.CreatedAt))
	return mapSQLError(err)
}

func scanCheckpoint(scan func(...any) error) (Checkpoint, error) {
	var c Checkpoint
	var createdAt string
	var activatedAt, activatedBy sql.NullString
	var lat, lon sql.NullFloat64
	var accuracy sql.NullInt64
	err := scan(&c.ID, &c.GameID, &c.TagCode, &c.OrderIndex, &c.LocationName, &c.Clue,
		&c.IsActive, &lat, &lon, &accuracy, &activatedBy, &activatedAt, &createdAt)
	if err != nil {
		return Checkpoint{}, mapSQLError(err)
	}
	if lat.Valid {
		c.Lat = &lat.Float64
	}
	if lon.Valid {
		c.Lon = &lon.Float64
	}
	if accuracy.Valid {
		m := int(accuracy.Int64)
		c.AccuracyM = &m
	}
	if activatedBy.Valid {
		c.ActivatedBy = &activatedBy.String
	}
	c.ActivatedAt = parseTimePtr(activatedAt)
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

func (o sqlOps) CheckpointByID(ctx context.Context, id int64) (Checkpoint, error) {
	return scanCheckpoint(o.q.QueryRowContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE id = ?`, id).Scan)
}

func (o sqlOps) CheckpointByTag(ctx context.Context, gameID int64, tagCode string) (Checkpoint, error) {
	return scanCheckpoint(o.q.QueryRowContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE game_id = ? AND tag_code = ?`,
		gameID, tagCode).Scan)
}

func (o sqlOps) CheckpointByTagGlobal(ctx context.Context, tagCode string) (Checkpoint, error) {
	return scanCheckpoint(o.q.QueryRowContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE tag_code = ? LIMIT 1`,
		tagCode).Scan)
}

func (o sqlOps) UpdateCheckpoint(ctx context.Context, c Checkpoint) error {
	result, err := o.q.ExecContext(ctx, `
		UPDATE checkpoints
		SET game_id = ?, tag_code = ?, order_index = ?, location_name = ?, clue = ?,
			is_active = ?, lat = ?, lon = ?, accuracy_m = ?, activated_by = ?, activated_at = ?
		WHERE id = ?
	`, c.GameID, c.TagCode, c.OrderIndex, c.LocationName, c.Clue,
		c.IsActive, c.Lat, c.Lon, c.AccuracyM, c.ActivatedBy, fmtTimePtr(c.ActivatedAt), c.ID)
	if err != nil {
		return mapSQLError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (o sqlOps) DeleteCheckpoint(ctx context.Context, id int64) error {
	_, err := o.q.ExecContext(ctx, `DELETE FROM checkpoints WHERE id = ?`, id)
	return err
}

func (o sqlOps) ListCheckpoints(ctx context.Context, gameID int64) ([]Checkpoint, error) {
	rows, err := o.q.QueryContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE game_id = ? ORDER BY order_index`,
		gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkpoints []Checkpoint
	for rows.Next() {
		c, err := scanCheckpoint(rows.Scan)
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, c)
	}
	return checkpoints, rows.Err()
}

// Players

func (o sqlOps) InsertPlayer(ctx context.Context, p Player) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO players (id, display_name, team, created_at) VALUES (?, ?, ?, ?)
	`, p.ID, p.DisplayName, p.Team, fmtTime(p.CreatedAt))
	return mapSQLError(err)
}

func (o sqlOps) PlayerByID(ctx context.Context, id string) (Player, error) {
	var p Player
	var createdAt string
	err := o.q.QueryRowContext(ctx,
		`SELECT id, display_name, team, created_at FROM players WHERE id = ?`, id,
	).Scan(&p.ID, &p.DisplayName, &p.Team, &createdAt)
	if err != nil {
		return Player{}, mapSQLError(err)
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func (o sqlOps) UpdatePlayer(ctx context.Context, p Player) error {
	result, err := o.q.ExecContext(ctx,
		`UPDATE players SET display_name = ?, team = ? WHERE id = ?`,
		p.DisplayName, p.Team, p.ID)
	if err != nil {
		return mapSQLError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (o sqlOps) DeletePlayer(ctx context.Context, id string) error {
	_, err := o.q.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
	return err
}

func (o sqlOps) ListPlayers(ctx context.Context) ([]Player, error) {
	rows, err := o.q.QueryContext(ctx,
		`SELECT id, display_name, team, created_at FROM players ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		var createdAt string
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Team, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		players = append(players, p)
	}
	return players, rows.Err()
}

// Memberships

const membershipColumns = `player_id, game_id, joined_at, checkpoints_scanned, last_scan_at, next_required`

func (o sqlOps) InsertMembership(ctx context.Context, m Membership) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO memberships (`+membershipColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`, m.PlayerID, m.GameID, fmtTime(m.JoinedAt), m.CheckpointsScanned,
		fmtTimePtr(m.LastScanAt), m.NextRequired)
	return mapSQLError(err)
}

func scanMembership(scan func(...any) error) (Membership, error) {
	var m Membership
	var joinedAt string
	var lastScanAt sql.NullString
	err := scan(&m.PlayerID, &m.GameID, &joinedAt, &m.CheckpointsScanned, &lastScanAt, &m.NextRequired)
	if err != nil {
		return Membership{}, mapSQLError(err)
	}
	m.JoinedAt = parseTime(joinedAt)
	m.LastScanAt = parseTimePtr(lastScanAt)
	return m, nil
}

func (o sqlOps) Membership(ctx context.Context, playerID string, gameID int64) (Membership, error) {
	return scanMembership(o.q.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE player_id = ? AND game_id = ?`,
		playerID, gameID).Scan)
}

func (o sqlOps) UpdateMembership(ctx context.Context, m Membership) error {
	result, err := o.q.ExecContext(ctx, `
		UPDATE memberships SET checkpoints_scanned = ?, last_scan_at = ?, next_required = ?
		WHERE player_id = ? AND game_id = ?
	`, m.CheckpointsScanned, fmtTimePtr(m.LastScanAt), m.NextRequired, m.PlayerID, m.GameID)
	if err != nil {
		return mapSQLError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (o sqlOps) DeleteMembership(ctx context.Context, playerID string, gameID int64) error {
	result, err := o.q.ExecContext(ctx,
		`DELETE FROM memberships WHERE player_id = ? AND game_id = ?`, playerID, gameID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (o sqlOps) DeleteMembershipsByGame(ctx context.Context, gameID int64) error {
	_, err := o.q.ExecContext(ctx, `DELETE FROM memberships WHERE game_id = ?`, gameID)
	return err
}

func (o sqlOps) DeleteMembershipsByPlayer(ctx context.Context, playerID string) error {
	_, err := o.q.ExecContext(ctx, `DELETE FROM memberships WHERE player_id = ?`, playerID)
	return err
}

func (o sqlOps) ListMembershipsByGame(ctx context.Context, gameID int64) ([]Membership, error) {
	rows, err := o.q.QueryContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE game_id = ? ORDER BY player_id`,
		gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Membership
	for rows.Next() {
		m, err := scanMembership(rows.Scan)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Claims

const claimColumns = `game_id, player_id, checkpoint_id, order_index, claimed_at, client_token`

func (o sqlOps) InsertClaim(ctx context.Context, c Claim) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO claims (`+claimColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`, c.GameID, c.PlayerID, c.CheckpointID, c.OrderIndex, fmtTime(c.ClaimedAt), c.ClientToken)
	return mapSQLError(err)
}

func scanClaim(scan func(...any) error) (Claim, error) {
	var c Claim
	var claimedAt string
	err := scan(&c.GameID, &c.PlayerID, &c.CheckpointID, &c.OrderIndex, &claimedAt, &c.ClientToken)
	if err != nil {
		return Claim{}, mapSQLError(err)
	}
	c.ClaimedAt = parseTime(claimedAt)
	return c, nil
}

func (o sqlOps) ClaimByKey(ctx context.Context, gameID int64, playerID string, checkpointID int64) (Claim, error) {
	return scanClaim(o.q.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE game_id = ? AND player_id = ? AND checkpoint_id = ?`,
		gameID, playerID, checkpointID).Scan)
}

func (o sqlOps) DeleteClaim(ctx context.Context, gameID int64, playerID string, checkpointID int64) error {
	result, err := o.q.ExecContext(ctx,
		`DELETE FROM claims WHERE game_id = ? AND player_id = ? AND checkpoint_id = ?`,
		gameID, playerID, checkpointID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func claimFilterWhere(f ClaimFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.GameID != nil {
		clauses = append(clauses, "game_id = ?")
		args = append(args, *f.GameID)
	}
	if f.PlayerID != nil {
		clauses = append(clauses, "player_id = ?")
		args = append(args, *f.PlayerID)
	}
	if f.CheckpointID != nil {
		clauses = append(clauses, "checkpoint_id = ?")
		args = append(args, *f.CheckpointID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (o sqlOps) ListClaims(ctx context.Context, f ClaimFilter) ([]Claim, error) {
	where, args := claimFilterWhere(f)
	rows, err := o.q.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims`+where+` ORDER BY order_index`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []Claim
	for rows.Next() {
		c, err := scanClaim(rows.Scan)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (o sqlOps) DeleteClaims(ctx context.Context, f ClaimFilter) (int, error) {
	where, args := claimFilterWhere(f)
	result, err := o.q.ExecContext(ctx, `DELETE FROM claims`+where, args...)
	if err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (o sqlOps) CountClaimsByPlayer(ctx context.Context, playerID string) (int, error) {
	var n int
	err := o.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE player_id = ?`, playerID).Scan(&n)
	return n, err
}

func (o sqlOps) Wipe(ctx context.Context) error {
	for _, table := range []string{"claims", "memberships", "checkpoints", "players", "games"} {
		if _, err := o.q.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("wiping %s: %w", table, err)
		}
	}
	return nil
}

var _ Store = (*SQLStore)(nil)
var _ Store = (*txStore)(nil)
