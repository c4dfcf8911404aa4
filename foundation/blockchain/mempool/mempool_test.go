package mempool_test

import (
	"testing"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/ardanlabs/blockbank/foundation/blockchain/mempool"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newTx(t *testing.T, from string, to string, amount int64) database.Tx {
	tx, err := database.NewTx(database.AccountID(from), database.AccountID(to), decimal.NewFromInt(amount), "test")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a transaction: %v", failed, err)
	}

	return tx
}

func TestCRUD(t *testing.T) {
	type table struct {
		name  string
		txs   [][3]any
		pick  int
		outOf string
		out   int64
	}

	tt := []table{
		{
			name:  "basic",
			txs:   [][3]any{{"A", "B", int64(10)}, {"B", "C", int64(50)}, {"A", "C", int64(100)}, {"C", "A", int64(10)}},
			pick:  2,
			outOf: "A",
			out:   110,
		},
		{
			name:  "all",
			txs:   [][3]any{{"A", "B", int64(1)}, {"A", "B", int64(2)}},
			pick:  0,
			outOf: "B",
			out:   0,
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transactions.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					var txs []database.Tx
					for _, v := range tst.txs {
						tx := newTx(t, v[0].(string), v[1].(string), v[2].(int64))
						txs = append(txs, tx)

						mp.Enqueue(tx)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to add new transactions.", success, testID)

					if mp.Count() != len(txs) {
						t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, mp.Count())
						t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, len(txs))
						t.Fatalf("\t%s\tTest %d:\tShould get back the right count.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right count.", success, testID)

					for i, tx := range mp.Copy() {
						if tx.ID != txs[i].ID {
							t.Fatalf("\t%s\tTest %d:\tShould get back transactions in submission order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back transactions in submission order.", success, testID)

					if got := mp.PendingOutflow(database.AccountID(tst.outOf)); !got.Equal(decimal.NewFromInt(tst.out)) {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.out)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right pending outflow.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right pending outflow.", success, testID)

					exp := tst.pick
					if exp <= 0 {
						exp = len(txs)
					}

					best := mp.PickBest(tst.pick)
					if len(best) != exp {
						t.Fatalf("\t%s\tTest %d:\tShould pick %d transactions, got %d.", failed, testID, exp, len(best))
					}
					if mp.Count() != len(txs) {
						t.Fatalf("\t%s\tTest %d:\tShould leave the pool untouched when picking.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould pick without removing.", success, testID)

					drained := mp.Drain(len(best))
					for i := range drained {
						if drained[i].ID != best[i].ID {
							t.Fatalf("\t%s\tTest %d:\tShould drain the picked transactions.", failed, testID)
						}
					}
					if mp.Count() != len(txs)-exp {
						t.Fatalf("\t%s\tTest %d:\tShould have %d transactions left, got %d.", failed, testID, len(txs)-exp, mp.Count())
					}
					t.Logf("\t%s\tTest %d:\tShould drain the picked transactions.", success, testID)

					rest := mp.DrainAll()
					if len(rest) != len(txs)-exp || mp.Count() != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould drain everything left.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould drain everything left.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
