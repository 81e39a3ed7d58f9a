package hunt

import (
	"context"
	"slices"
	"sync"
)

type membershipKey struct {
	PlayerID string
	GameID   int64
}

type claimKey struct {
	GameID       int64
	PlayerID     string
	CheckpointID int64
}

type memTables struct {
	counters    map[Kind]int64
	games       map[int64]Game
	checkpoints map[int64]Checkpoint
	players     map[string]Player
	memberships map[membershipKey]Membership
	claims      map[claimKey]Claim
}

func newMemTables() *memTables {
	return &memTables{
		counters:    make(map[Kind]int64),
		games:       make(map[int64]Game),
		checkpoints: make(map[int64]Checkpoint),
		players:     make(map[string]Player),
		memberships: make(map[membershipKey]Membership),
		claims:      make(map[claimKey]Claim),
	}
}

func (t *memTables) clone() *memTables {
	c := newMemTables()
	for k, v := range t.counters {
		c.counters[k] = v
	}
	for k, v := range t.games {
		c.games[k] = v
	}
	for k, v := range t.checkpoints {
		c.checkpoints[k] = v
	}
	for k, v := range t.players {
		c.players[k] = v
	}
	for k, v := range t.memberships {
		c.memberships[k] = v
	}
	for k, v := range t.claims {
		c.claims[k] = v
	}
	return c
}

// MemStore is an in-memory Store. Atomic takes the store lock and runs
// fn against a copy of the tables, swapping the copy in only when fn
// succeeds, so a failed operation leaves nothing behind. A single lock
// serializes all operations, which stands in for the serializable
// isolation the SQL store gets from its transactions.
type MemStore struct {
	mu     sync.Mutex
	tables *memTables
	inTx   bool
}

func NewMemStore() *MemStore {
	return &MemStore{tables: newMemTables()}
}

func (s *MemStore) Atomic(_ context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &MemStore{tables: s.tables.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.tables = tx.tables
	return nil
}

// lock is a no-op inside a transaction, where Atomic already holds the
// outer lock.
func (s *MemStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemStore) NextID(_ context.Context, kind Kind) (int64, error) {
	defer s.lock()()
	s.tables.counters[kind]++
	return s.tables.counters[kind], nil
}

// Games

func (s *MemStore) InsertGame(_ context.Context, g Game) error {
	defer s.lock()()
	if _, ok := s.tables.games[g.ID]; ok {
		return ErrDuplicate
	}
	for _, other := range s.tables.games {
		if other.Code == g.Code {
			return ErrDuplicate
		}
	}
	s.tables.games[g.ID] = g
	return nil
}

func (s *MemStore) GameByID(_ context.Context, id int64) (Game, error) {
	defer s.lock()()
	g, ok := s.tables.games[id]
	if !ok {
		return Game{}, ErrNotFound
	}
	return g, nil
}

func (s *MemStore) GameByCode(_ context.Context, code string) (Game, error) {
	defer s.lock()()
	for _, g := range s.tables.games {
		if g.Code == code {
			return g, nil
		}
	}
	return Game{}, ErrNotFound
}

func (s *MemStore) UpdateGame(_ context.Context, g Game) error {
	defer s.lock()()
	if _, ok := s.tables.games[g.ID]; !ok {
		return ErrNotFound
	}
	s.tables.games[g.ID] = g
	return nil
}

func (s *MemStore) DeleteGame(_ context.Context, id int64) error {
	defer s.lock()()
	delete(s.tables.games, id)
	return nil
}

func (s *MemStore) ListGames(_ context.Context) ([]Game, error) {
	defer s.lock()()
	games := make([]Game, 0, len(s.tables.games))
	for _, g := range s.tables.games {
		games = append(games, g)
	}
	slices.SortFunc(games, func(a, b Game) int { return int(a.ID - b.ID) })
	return games, nil
}

// Checkpoints

func (s *MemStore) InsertCheckpoint(_ context.Context, c Checkpoint) error {
	defer s.lock()()
	if _, ok := s.tables.checkpoints[c.ID]; ok {
		return ErrDuplicate
	}
	for _, other := range s.tables.checkpoints {
		if other.GameID == c.GameID && (other.TagCode == c.TagCode || other.OrderIndex == c.OrderIndex) {
			return ErrDuplicate
		}
	}
	s.tables.checkpoints[c.ID] = c
	return nil
}

func (s *MemStore) CheckpointByID(_ context.Context, id int64) (Checkpoint, error) {
	defer s.lock()()
	c, ok := s.tables.checkpoints[id]
	if !ok {
		return Checkpoint{}, ErrNotFound
	}
	return c, nil
}

func (s *MemStore) CheckpointByTag(_ context.Context, gameID int64, tagCode string) (Checkpoint, error) {
	defer s.lock()()
	for _, c := range s.tables.checkpoints {
		if c.GameID == gameID && c.TagCode == tagCode {
			return c, nil
		}
	}
	return Checkpoint{}, ErrNotFound
}

func (s *MemStore) CheckpointByTagGlobal(_ context.Context, tagCode string) (Checkpoint, error) {
	defer s.lock()()
	for _, c := range s.tables.checkpoints {
		if c.TagCode == tagCode {
			return c, nil
		}
	}
	return Checkpoint{}, ErrNotFound
}

func (s *MemStore) UpdateCheckpoint(_ context.Context, c Checkpoint) error {
	defer s.lock()()
	if _, ok := s.tables.checkpoints[c.ID]; !ok {
		return ErrNotFound
	}
	s.tables.checkpoints[c.ID] = c
	return nil
}

func (s *MemStore) DeleteCheckpoint(_ context.Context, id int64) error {
	defer s.lock()()
	delete(s.tables.checkpoints, id)
	return nil
}

func (s *MemStore) ListCheckpoints(_ context.Context, gameID int64) ([]Checkpoint, error) {
	defer s.lock()()
	var checkpoints []Checkpoint
	for _, c := range s.tables.checkpoints {
		if c.GameID == gameID {
			checkpoints = append(checkpoints, c)
		}
	}
	slices.SortFunc(checkpoints, func(a, b Checkpoint) int { return a.OrderIndex - b.OrderIndex })
	return checkpoints, nil
}

// Players

func (s *MemStore) InsertPlayer(_ context.Context, p Player) error {
	defer s.lock()()
	if _, ok := s.tables.players[p.ID]; ok {
		return ErrDuplicate
	}
	s.tables.players[p.ID] = p
	return nil
}

func (s *MemStore) PlayerByID(_ context.Context, id string) (Player, error) {
	defer s.lock()()
	p, ok := s.tables.players[id]
	if !ok {
		return Player{}, ErrNotFound
	}
	return p, nil
}

func (s *MemStore) UpdatePlayer(_ context.Context, p Player) error {
	defer s.lock()()
	if _, ok := s.tables.players[p.ID]; !ok {
		return ErrNotFound
	}
	s.tables.players[p.ID] = p
	return nil
}

func (s *MemStore) DeletePlayer(_ context.Context, id string) error {
	defer s.lock()()
	delete(s.tables.players, id)
	return nil
}

func (s *MemStore) ListPlayers(_ context.Context) ([]Player, error) {
	defer s.lock()()
	players := make([]Player, 0, len(s.tables.players))
	for _, p := range s.tables.players {
		players = append(players, p)
	}
	slices.SortFunc(players, func(a, b Player) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return players, nil
}

// Memberships

func (s *MemStore) InsertMembership(_ context.Context, m Membership) error {
	defer s.lock()()
	key := membershipKey{m.PlayerID, m.GameID}
	if _, ok := s.tables.memberships[key]; ok {
		return ErrDuplicate
	}
	s.tables.memberships[key] = m
	return nil
}

func (s *MemStore) Membership(_ context.Context, playerID string, gameID int64) (Membership, error) {
	defer s.lock()()
	m, ok := s.tables.memberships[membershipKey{playerID, gameID}]
	if !ok {
		return Membership{}, ErrNotFound
	}
	return m, nil
}

func (s *MemStore) UpdateMembership(_ context.Context, m Membership) error {
	defer s.lock()()
	key := membershipKey{m.PlayerID, m.GameID}
	if _, ok := s.tables.memberships[key]; !ok {
		return ErrNotFound
	}
	s.tables.memberships[key] = m
	return nil
}

func (s *MemStore) DeleteMembership(_ context.Context, playerID string, gameID int64) error {
	defer s.lock()()
	key := membershipKey{playerID, gameID}
	if _, ok := s.tables.memberships[key]; !ok {
		return ErrNotFound
	}
	delete(s.tables.memberships, key)
	return nil
}

func (s *MemStore) DeleteMembershipsByGame(_ context.Context, gameID int64) error {
	defer s.lock()()
	for key := range s.tables.memberships {
		if key.GameID == gameID {
			delete(s.tables.memberships, key)
		}
	}
	return nil
}

func (s *MemStore) DeleteMembershipsByPlayer(_ context.Context, playerID string) error {
	defer s.lock()()
	for key := range s.tables.memberships {
		if key.PlayerID == playerID {
			delete(s.tables.memberships, key)
		}
	}
	return nil
}

func (s *MemStore) ListMembershipsByGame(_ context.Context, gameID int64) ([]Membership, error) {
	defer s.lock()()
	var members []Membership
	for _, m := range s.tables.memberships {
		if m.GameID == gameID {
			members = append(members, m)
		}
	}
	slices.SortFunc(members, func(a, b Membership) int {
		if a.PlayerID < b.PlayerID {
			return -1
		}
		if a.PlayerID > b.PlayerID {
			return 1
		}
		return 0
	})
	return members, nil
}

// Claims

func (s *MemStore) InsertClaim(_ context.Context, c Claim) error {
	defer s.lock()()
	key := claimKey{c.GameID, c.PlayerID, c.CheckpointID}
	if _, ok := s.tables.claims[key]; ok {
		return ErrDuplicate
	}
	s.tables.claims[key] = c
	return nil
}

func (s *MemStore) ClaimByKey(_ context.Context, gameID int64, playerID string, checkpointID int64) (Claim, error) {
	defer s.lock()()
	c, ok := s.tables.claims[claimKey{gameID, playerID, checkpointID}]
	if !ok {
		return Claim{}, ErrNotFound
	}
	return c, nil
}

func (s *MemStore) DeleteClaim(_ context.Context, gameID int64, playerID string, checkpointID int64) error {
	defer s.lock()()
	key := claimKey{gameID, playerID, checkpointID}
	if _, ok := s.tables.claims[key]; !ok {
		return ErrNotFound
	}
	delete(s.tables.claims, key)
	return nil
}

func matchClaim(c Claim, f ClaimFilter) bool {
	if f.GameID != nil && c.GameID != *f.GameID {
		return false
	}
	if f.PlayerID != nil && c.PlayerID != *f.PlayerID {
		return false
	}
	if f.CheckpointID != nil && c.CheckpointID != *f.CheckpointID {
		return false
	}
	return true
}

func (s *MemStore) ListClaims(_ context.Context, f ClaimFilter) ([]Claim, error) {
	defer s.lock()()
	var claims []Claim
	for _, c := range s.tables.claims {
		if matchClaim(c, f) {
			claims = append(claims, c)
		}
	}
	slices.SortFunc(claims, func(a, b Claim) int { return a.OrderIndex - b.OrderIndex })
	return claims, nil
}

func (s *MemStore) DeleteClaims(_ context.Context, f ClaimFilter) (int, error) {
	defer s.lock()()
	n := 0
	for key, c := range s.tables.claims {
		if matchClaim(c, f) {
			delete(s.tables.claims, key)
			n++
		}
	}
	return n, nil
}

func (s *MemStore) CountClaimsByPlayer(_ context.Context, playerID string) (int, error) {
	defer s.lock()()
	n := 0
	for _, c := range s.tables.claims {
		if c.PlayerID == playerID {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) Wipe(_ context.Context) error {
	defer s.lock()()
	counters := s.tables.counters
	s.tables = newMemTables()
	s.tables.counters = counters
	return nil
}

var _ Store = (*MemStore)(nil)
