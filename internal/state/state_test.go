package state

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/mrcasterbaldman/caster-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStorage accepts reads but rejects every write
type failingStorage struct {
	*storage.MemoryStorage
}

func (f failingStorage) Store(string, []byte) error {
	return errors.New("disk full")
}

// rejectingStorage fails writes to one object and passes everything else through
type rejectingStorage struct {
	*storage.MemoryStorage
	reject string
}

func (r rejectingStorage) Store(filename string, data []byte) error {
	if filename == r.reject {
		return errors.New("write rejected")
	}
	return r.MemoryStorage.Store(filename, data)
}

func TestProcessedStore_AddAndReload(t *testing.T) {
	mem := storage.NewMemoryStorage()

	p, err := NewProcessedStore(mem)
	require.NoError(t, err)
	assert.False(t, p.Contains("0xaaa"))

	require.NoError(t, p.Add("0xaaa"))
	require.NoError(t, p.Add("0xbbb"))
	require.NoError(t, p.Add("0xaaa"))
	assert.True(t, p.Contains("0xaaa"))
	assert.Equal(t, 2, p.Len())

	data, err := mem.Retrieve(ProcessedFile)
	require.NoError(t, err)
	assert.Equal(t, "0xaaa\n0xbbb\n", string(data))

	reloaded, err := NewProcessedStore(mem)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains("0xbbb"))
	assert.Equal(t, 2, reloaded.Len())
}

func TestProcessedStore_KeepsIDWhenPersistFails(t *testing.T) {
	p, err := NewProcessedStore(failingStorage{storage.NewMemoryStorage()})
	require.NoError(t, err)

	assert.Error(t, p.Add("0xaaa"))
	assert.True(t, p.Contains("0xaaa"))
}

func TestProcessedStore_LoadSkipsBlankLines(t *testing.T) {
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Store(ProcessedFile, []byte("a\n\n b \na\n")))

	p, err := NewProcessedStore(mem)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.True(t, p.Contains("b"))
}

func TestBalanceStore_RejectsNegative(t *testing.T) {
	b, err := NewBalanceStore(storage.NewMemoryStorage())
	require.NoError(t, err)

	assert.ErrorIs(t, b.Set("1", -5), ErrNegativeAmount)
	assert.Equal(t, int64(0), b.Get("1"))
}

func TestBalanceStore_RollsBackOnPersistFailure(t *testing.T) {
	b, err := NewBalanceStore(failingStorage{storage.NewMemoryStorage()})
	require.NoError(t, err)

	assert.Error(t, b.Set("1", 100))
	assert.Equal(t, int64(0), b.Get("1"))
	assert.Empty(t, b.All())
}

func TestRankingStore_SortedDescendingAndStable(t *testing.T) {
	r, err := NewRankingStore(storage.NewMemoryStorage())
	require.NoError(t, err)

	_, err = r.Upsert(models.RankingEntry{FID: "1", Username: "alice", Balance: 100})
	require.NoError(t, err)
	_, err = r.Upsert(models.RankingEntry{FID: "2", Username: "bob", Balance: 100})
	require.NoError(t, err)
	rank, err := r.Upsert(models.RankingEntry{FID: "3", Username: "carol", Balance: 300})
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	entries := r.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"3", "1", "2"}, []string{entries[0].FID, entries[1].FID, entries[2].FID})

	rank, err = r.Upsert(models.RankingEntry{FID: "2", Balance: 200})
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
	assert.Equal(t, "bob", r.Entries()[1].Username)
	assert.Equal(t, 0, r.Rank("unknown"))
	assert.Len(t, r.Top(2), 2)
}

func TestRankingStore_LoadResorts(t *testing.T) {
	mem := storage.NewMemoryStorage()
	data, err := json.Marshal([]models.RankingEntry{
		{FID: "1", Balance: 100},
		{FID: "2", Balance: 500},
	})
	require.NoError(t, err)
	require.NoError(t, mem.Store(RankingsFile, data))

	r, err := NewRankingStore(mem)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Rank("2"))
}

func TestStandings_CreditIsMonotonicAndOrdered(t *testing.T) {
	mem := storage.NewMemoryStorage()
	_, standings, err := Open(mem)
	require.NoError(t, err)

	credits := []struct {
		fid, user string
	}{
		{"1", "alice"}, {"2", "bob"}, {"2", "bob"}, {"3", "carol"}, {"1", "alice"}, {"1", "alice"},
	}

	for _, c := range credits {
		before := standings.Balance(c.fid)
		st, err := standings.Credit(c.fid, c.user, 100)
		require.NoError(t, err)
		assert.Equal(t, before+100, st.Balance)
		assert.GreaterOrEqual(t, st.Rank, 1)

		board := standings.Leaderboard(0)
		for i := 0; i+1 < len(board); i++ {
			assert.GreaterOrEqual(t, board[i].Balance, board[i+1].Balance)
		}
	}

	assert.Equal(t, int64(300), standings.Balance("1"))
	assert.Equal(t, "1", standings.Leaderboard(1)[0].FID)

	// Reload from the same storage and verify persistence
	_, reloaded, err := Open(mem)
	require.NoError(t, err)
	assert.Equal(t, int64(200), reloaded.Balance("2"))
	assert.Len(t, reloaded.Leaderboard(0), 3)
}

func TestStandings_CreditRejectsNonPositive(t *testing.T) {
	_, standings, err := Open(storage.NewMemoryStorage())
	require.NoError(t, err)

	_, err = standings.Credit("1", "alice", 0)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
	assert.ErrorContains(t, err, "must be positive")

	_, err = standings.Credit("1", "alice", -5)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
	assert.Empty(t, standings.Leaderboard(0))
}

func TestStandings_CreditDefaultsRankWhenLeaderboardSaveFails(t *testing.T) {
	mem := storage.NewMemoryStorage()
	_, standings, err := Open(rejectingStorage{MemoryStorage: mem, reject: RankingsFile})
	require.NoError(t, err)

	standing, err := standings.Credit("7", "alice", 100)

	assert.Error(t, err)
	assert.Equal(t, models.Standing{Balance: 100, Rank: 1}, standing)
	assert.Equal(t, int64(100), standings.Balance("7"))
	assert.Equal(t, 0, standings.Rank("7"))
	assert.Empty(t, standings.Leaderboard(0))

	balances, err := NewBalanceStore(mem)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balances.Get("7"))
}

func TestStandings_CreditFailsWhenBalanceSaveFails(t *testing.T) {
	_, standings, err := Open(failingStorage{storage.NewMemoryStorage()})
	require.NoError(t, err)

	standing, err := standings.Credit("7", "alice", 100)

	assert.Error(t, err)
	assert.Equal(t, models.Standing{}, standing)
	assert.Equal(t, int64(0), standings.Balance("7"))
}

func TestStandings_Rank(t *testing.T) {
	_, standings, err := Open(storage.NewMemoryStorage())
	require.NoError(t, err)

	_, err = standings.Credit("1", "alice", 100)
	require.NoError(t, err)
	_, err = standings.Credit("2", "bob", 200)
	require.NoError(t, err)

	assert.Equal(t, 2, standings.Rank("1"))
	assert.Equal(t, 1, standings.Rank("2"))
	assert.Equal(t, 0, standings.Rank("3"))
}
