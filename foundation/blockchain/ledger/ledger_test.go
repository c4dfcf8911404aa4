package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/ardanlabs/blockbank/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/blockbank/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/blockbank/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockbank/foundation/blockchain/ledger"
	"github.com/ardanlabs/blockbank/foundation/blockchain/worker"
	"github.com/ardanlabs/blockbank/foundation/events"
	"github.com/ardanlabs/blockbank/foundation/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder keeps every event raised by the ledger.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) handler(v string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, fmt.Sprintf(v, args...))
}

func (r *recorder) contains(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events {
		if strings.Contains(e, s) {
			return true
		}
	}
	return false
}

func newGenesis(difficulty uint, balances map[string]int64) genesis.Genesis {
	g := genesis.Default()
	g.Difficulty = difficulty

	for account, amount := range balances {
		g.Balances[account] = decimal.NewFromInt(amount)
	}

	return g
}

func newLedger(t *testing.T, cfg ledger.Config) *ledger.Ledger {
	l, err := ledger.New(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { l.Shutdown() })

	return l
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// =============================================================================

func Test_FreshLedger(t *testing.T) {
	l := newLedger(t, ledger.Config{Genesis: newGenesis(2, nil)})

	stats := l.Stats()
	assert.Equal(t, 1, stats.TotalBlocks)
	assert.Equal(t, 0, stats.TotalTransactions)
	assert.True(t, stats.IsValid)

	latest := l.LatestBlock()
	assert.Equal(t, uint64(0), latest.Header.Number)
	assert.Equal(t, database.ZeroHash, latest.Header.PrevBlockHash)
	assert.Empty(t, latest.Trans)
}

func Test_SubmitAndMine(t *testing.T) {
	log, err := logger.New("TEST")
	require.NoError(t, err)
	defer log.Sync()

	evts := events.New()
	defer evts.Shutdown()

	ch := evts.Acquire("test")

	ev := func(v string, args ...any) {
		const websocketPrefix = "viewer:"

		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, websocketPrefix) {
			evts.Send(s)
		}
	}

	l := newLedger(t, ledger.Config{
		Genesis:   newGenesis(2, map[string]int64{"A": 100}),
		EvHandler: ev,
	})
	worker.Run(l, ev)

	receipt, err := l.Submit(context.Background(), "A", "B", amount(100), "rent")
	require.NoError(t, err)

	assert.Equal(t, database.TxSealed, receipt.Status)
	assert.Equal(t, uint64(1), receipt.BlockNumber)
	assert.True(t, strings.HasPrefix(receipt.BlockHash, "00"), "hash %s should solve difficulty 2", receipt.BlockHash)

	chain := l.Chain()
	require.Equal(t, 2, chain.Len())

	latest, err := chain.Latest()
	require.NoError(t, err)
	genesisBlock, err := chain.Block(0)
	require.NoError(t, err)

	assert.Equal(t, genesisBlock.Hash, latest.Header.PrevBlockHash)
	require.Len(t, latest.Trans, 1)
	assert.Equal(t, database.TxSealed, latest.Trans[0].Status)
	assert.Empty(t, l.Mempool())

	assert.True(t, l.Balance("A").Equal(amount(-100)), "balance A: %s", l.Balance("A"))
	assert.True(t, l.Balance("B").Equal(amount(100)), "balance B: %s", l.Balance("B"))
	assert.True(t, l.Available("A").IsZero(), "available A: %s", l.Available("A"))

	stats := l.Stats()
	assert.Equal(t, 2, stats.TotalBlocks)
	assert.Equal(t, 1, stats.TotalTransactions)
	assert.True(t, stats.IsValid)

	receipts := l.TransactionsFor("B")
	require.Len(t, receipts, 1)
	assert.Equal(t, receipt.ID, receipts[0].ID)

	select {
	case s := <-ch:
		assert.True(t, strings.HasPrefix(s, "viewer: block:"), "event: %s", s)
	case <-time.After(time.Second):
		t.Fatal("should receive the block event")
	}
}

func Test_InvalidSubmissions(t *testing.T) {
	type table struct {
		name   string
		from   database.AccountID
		to     database.AccountID
		amount decimal.Decimal
		err    error
	}

	tt := []table{
		{name: "zero", from: "A", to: "B", amount: amount(0), err: database.ErrInvalidAmount},
		{name: "negative", from: "A", to: "B", amount: amount(-5), err: database.ErrInvalidAmount},
		{name: "account", from: "", to: "B", amount: amount(5), err: database.ErrInvalidAccount},
		{name: "insufficient", from: "A", to: "B", amount: amount(51), err: ledger.ErrInsufficientBalance},
		{name: "unfunded", from: "C", to: "B", amount: amount(1), err: ledger.ErrInsufficientBalance},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			l := newLedger(t, ledger.Config{Genesis: newGenesis(1, map[string]int64{"A": 50})})

			_, err := l.Submit(context.Background(), tst.from, tst.to, tst.amount, "")
			assert.ErrorIs(t, err, tst.err)

			stats := l.Stats()
			assert.Equal(t, 1, stats.TotalBlocks, "chain should be unchanged")
			assert.Equal(t, 0, l.MempoolLength(), "mempool should be unchanged")
		})
	}
}

func Test_ConcurrentDoubleSpend(t *testing.T) {
	l := newLedger(t, ledger.Config{Genesis: newGenesis(1, map[string]int64{"A": 100})})
	worker.Run(l, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)

	for i, to := range []database.AccountID{"B", "C"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = l.Submit(context.Background(), "A", to, amount(100), "")
		}()
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ledger.ErrInsufficientBalance):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.True(t, l.Balance("A").Equal(amount(-100)))
	assert.True(t, l.Stats().IsValid)
}

func Test_Conservation(t *testing.T) {
	l := newLedger(t, ledger.Config{Genesis: newGenesis(1, map[string]int64{"A": 100, "B": 100})})

	ctx := context.Background()
	for _, tx := range []struct {
		from database.AccountID
		to   database.AccountID
		amt  int64
	}{
		{"A", "B", 30}, {"B", "C", 80}, {"C", "A", 10}, {"A", "C", 50},
	} {
		_, err := l.Submit(ctx, tx.from, tx.to, amount(tx.amt), "")
		require.NoError(t, err)
	}

	total := decimal.Zero
	for _, balance := range database.Balances(l.Chain()) {
		total = total.Add(balance)
	}
	assert.True(t, total.IsZero(), "sum of balances: %s", total)

	stats := l.Stats()
	assert.Equal(t, 5, stats.TotalBlocks)
	assert.Equal(t, 4, stats.TotalTransactions)

	receipts := l.TransactionsFor("A")
	require.Len(t, receipts, 3)
	assert.Equal(t, uint64(4), receipts[0].BlockNumber, "newest first")
}

func Test_TransPerBlock(t *testing.T) {
	g := newGenesis(1, map[string]int64{"A": 100})
	g.TransPerBlock = 2

	strg := memory.New()
	l := newLedger(t, ledger.Config{Genesis: g, Storage: strg})

	// Queue three transactions without a worker or waiting caller.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 3 {
		_, err := l.Submit(ctx, "A", "B", amount(1), "")
		require.ErrorIs(t, err, database.ErrCancelled)
	}
	require.Equal(t, 3, l.MempoolLength())

	block, err := l.MineNewBlock(context.Background())
	require.NoError(t, err)
	assert.Len(t, block.Trans, 2)
	assert.Equal(t, 1, l.MempoolLength())

	block, err = l.MineNewBlock(context.Background())
	require.NoError(t, err)
	assert.Len(t, block.Trans, 1)

	_, err = l.MineNewBlock(context.Background())
	assert.ErrorIs(t, err, ledger.ErrNoTransactions)
}

func Test_MineTimeout(t *testing.T) {
	l := newLedger(t, ledger.Config{
		Genesis:     newGenesis(64, map[string]int64{"A": 100}),
		MineTimeout: 50 * time.Millisecond,
	})
	worker.Run(l, nil)

	receipt, err := l.Submit(context.Background(), "A", "B", amount(40), "")
	require.ErrorIs(t, err, database.ErrCancelled)

	assert.Equal(t, database.TxPending, receipt.Status)
	assert.Equal(t, 1, l.MempoolLength(), "the transaction should stay pending")
	assert.Equal(t, 1, l.Stats().TotalBlocks)
	assert.True(t, l.Available("A").Equal(amount(60)), "funds should stay reserved")
}

func Test_MineTimeoutOutsideBatch(t *testing.T) {
	g := newGenesis(64, map[string]int64{"A": 100})
	g.TransPerBlock = 1

	l := newLedger(t, ledger.Config{
		Genesis:     g,
		MineTimeout: 50 * time.Millisecond,
	})
	worker.Run(l, nil)

	const submits = 2
	errs := make(chan error, submits)

	for range submits {
		go func() {
			_, err := l.Submit(context.Background(), "A", "B", amount(1), "")
			errs <- err
		}()
	}

	timeout := time.After(3 * time.Second)
	for i := range submits {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, database.ErrCancelled)
		case <-timeout:
			t.Fatalf("only %d of %d Submit calls returned: mempool[%d]", i, submits, l.MempoolLength())
		}
	}

	assert.Equal(t, submits, l.MempoolLength(), "the transactions should stay pending")
	assert.True(t, l.Available("A").Equal(amount(98)), "funds should stay reserved")
}

type signalCounter struct {
	mu    sync.Mutex
	start int
}

func (s *signalCounter) Shutdown()           {}
func (s *signalCounter) SignalCancelMining() {}
func (s *signalCounter) SignalStartMining() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.start++
}

func Test_SetWorker(t *testing.T) {
	l := newLedger(t, ledger.Config{Genesis: newGenesis(1, map[string]int64{"A": 100})})

	var w signalCounter
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		l.SetWorker(&w)
	}()
	go func() {
		defer wg.Done()
		l.Stats()
	}()
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Submit(ctx, "A", "B", amount(5), "")
	require.ErrorIs(t, err, database.ErrCancelled, "a registered worker mines, not the caller")

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Equal(t, 1, w.start)
}

func Test_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	g := newGenesis(2, map[string]int64{"A": 100})

	strg, err := disk.New(path)
	require.NoError(t, err)

	l, err := ledger.New(ledger.Config{Genesis: g, Storage: strg})
	require.NoError(t, err)

	_, err = l.Submit(context.Background(), "A", "B", amount(25), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Submit(ctx, "A", "C", amount(5), "")
	require.ErrorIs(t, err, database.ErrCancelled)

	before := l.Stats()
	require.NoError(t, l.Shutdown())

	strg, err = disk.New(path)
	require.NoError(t, err)

	reloaded := newLedger(t, ledger.Config{Genesis: g, Storage: strg})

	assert.Equal(t, before, reloaded.Stats())
	assert.True(t, reloaded.Balance("B").Equal(amount(25)))
	assert.Equal(t, 1, reloaded.MempoolLength(), "pending transaction should be restored")
	assert.True(t, reloaded.Available("A").Equal(amount(70)))

	worker.Run(reloaded, nil)

	require.Eventually(t, func() bool {
		return reloaded.MempoolLength() == 0
	}, 5*time.Second, 10*time.Millisecond, "restored transaction should be mined")
	assert.True(t, reloaded.Balance("C").Equal(amount(5)))
}

func Test_CorruptState(t *testing.T) {
	g := newGenesis(1, nil)

	t.Run("recover", func(t *testing.T) {
		strg := memory.New()
		strg.SetRaw([]byte("{not json"))

		var rec recorder
		l := newLedger(t, ledger.Config{Genesis: g, Storage: strg, EvHandler: rec.handler})

		assert.Equal(t, 1, l.Stats().TotalBlocks)
		assert.True(t, rec.contains("WARNING"), "corruption should be reported")

		record, err := strg.Load()
		require.NoError(t, err)
		assert.Len(t, record.Chain, 1, "storage should hold the fresh chain")
	})

	t.Run("strict", func(t *testing.T) {
		strg := memory.New()
		strg.SetRaw([]byte("{not json"))

		_, err := ledger.New(ledger.Config{Genesis: g, Storage: strg, StrictLoad: true})
		assert.ErrorIs(t, err, ledger.ErrCorruptPersistedState)
	})
}

func Test_LoadModes(t *testing.T) {
	g := newGenesis(1, map[string]int64{"A": 100})

	// Build a record holding a tampered block.
	strg := memory.New()
	l, err := ledger.New(ledger.Config{Genesis: g, Storage: strg})
	require.NoError(t, err)

	_, err = l.Submit(context.Background(), "A", "B", amount(10), "")
	require.NoError(t, err)

	record, err := strg.Load()
	require.NoError(t, err)
	record.Chain[1].Trans[0].Amount = amount(99)
	require.NoError(t, strg.Save(record))

	t.Run("validate", func(t *testing.T) {
		cpy := memory.New()
		require.NoError(t, cpy.Save(record))

		l := newLedger(t, ledger.Config{Genesis: g, Storage: cpy})
		assert.Equal(t, 1, l.Stats().TotalBlocks, "tampered chain should be replaced")
	})

	t.Run("trusted", func(t *testing.T) {
		cpy := memory.New()
		require.NoError(t, cpy.Save(record))

		l := newLedger(t, ledger.Config{Genesis: g, Storage: cpy, LoadMode: ledger.LoadTrusted})

		stats := l.Stats()
		assert.Equal(t, 2, stats.TotalBlocks, "tampered chain should be kept")
		assert.False(t, stats.IsValid)
		assert.Error(t, l.Validate())
	})
}

func Test_ParseLoadMode(t *testing.T) {
	mode, err := ledger.ParseLoadMode("trusted")
	require.NoError(t, err)
	assert.Equal(t, ledger.LoadTrusted, mode)

	mode, err = ledger.ParseLoadMode("")
	require.NoError(t, err)
	assert.Equal(t, ledger.LoadAndValidate, mode)

	_, err = ledger.ParseLoadMode("yolo")
	assert.Error(t, err)
}
