// Package reconcile matches bank statement lines against book entries.
//
// Matching is one-to-one on the pair (reference, absolute amount). It is not
// fuzzy and not amount-tolerant. Both inputs are put into a canonical order
// before matching, so the partition and every total depend only on the
// contents of the two sets, never on their order. A nonzero Difference is a
// normal outcome, not an error.
package reconcile

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/diewo77/go-gstbooks/money"
	"github.com/google/uuid"
)

// State is the reconciliation status of a single transaction.
type State string

const (
	Unmatched State = "unmatched"
	Matched   State = "matched"
)

// Transaction is a bank statement line or a book entry. Amount is signed:
// money in is positive, money out is negative.
type Transaction struct {
	ID          string      `json:"id"`
	Date        time.Time   `json:"date"`
	Description string      `json:"description"`
	Amount      money.Money `json:"amount"`
	Reference   string      `json:"reference"`
}

// BankTransaction and BookTransaction name the side a Transaction came from.
type (
	BankTransaction = Transaction
	BookTransaction = Transaction
)

// Pair is one matched bank/book couple.
type Pair struct {
	Bank BankTransaction `json:"bank"`
	Book BookTransaction `json:"book"`
}

// Suggestion points at an unmatched bank/book couple with the same amount
// whose references differ by a few characters. Suggestions are advisory and
// never change which transactions are matched.
type Suggestion struct {
	BankID   string `json:"bank_id"`
	BookID   string `json:"book_id"`
	Distance int    `json:"distance"`
}

// Request is a reconciliation run. A nil balance defaults to the signed sum
// of the corresponding transaction set.
type Request struct {
	BankBalance *money.Money      `json:"bank_balance,omitempty"`
	BookBalance *money.Money      `json:"book_balance,omitempty"`
	Bank        []BankTransaction `json:"bank"`
	Book        []BookTransaction `json:"book"`
}

// Result is the outcome of a run.
type Result struct {
	RunID string `json:"run_id"`

	BankBalance         money.Money `json:"bank_balance"`
	BookBalance         money.Money `json:"book_balance"`
	OutstandingDeposits money.Money `json:"outstanding_deposits"`
	OutstandingChecks   money.Money `json:"outstanding_checks"`
	BankFees            money.Money `json:"bank_fees"`
	AdjustedBankBalance money.Money `json:"adjusted_bank_balance"`
	AdjustedBookBalance money.Money `json:"adjusted_book_balance"`
	Difference          money.Money `json:"difference"`

	MatchedPairs  []Pair            `json:"matched_pairs"`
	UnmatchedBank []BankTransaction `json:"unmatched_bank"`
	UnmatchedBook []BookTransaction `json:"unmatched_book"`
	Suggestions   []Suggestion      `json:"suggestions"`

	bankState map[string]State
	bookState map[string]State
}

// Reconciled reports whether the adjusted balances agree.
func (r *Result) Reconciled() bool { return r.Difference.IsZero() }

// BankState returns the state of the bank transaction with the given id, as
// it appears in the result. Unknown ids report Unmatched.
func (r *Result) BankState(id string) State { return lookup(r.bankState, id) }

// BookState returns the state of the book transaction with the given id.
func (r *Result) BookState(id string) State { return lookup(r.bookState, id) }

func lookup(m map[string]State, id string) State {
	if s, ok := m[id]; ok {
		return s
	}
	return Unmatched
}

// DefaultSuggestDistance is the largest reference edit distance reported as a Suggestion.
const DefaultSuggestDistance = 2

// Engine runs reconciliations. The zero value is not usable; call NewEngine.
// An Engine holds no per-run state and is safe for concurrent use.
type Engine struct {
	newID           func() string
	suggestDistance int
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDs replaces the uuid generator used for run and transaction ids.
func WithIDs(fn func() string) Option { return func(e *Engine) { e.newID = fn } }

// WithSuggestDistance sets the edit distance for suggestions. Zero or less disables them.
func WithSuggestDistance(d int) Option { return func(e *Engine) { e.suggestDistance = d } }

// NewEngine returns an engine with uuid ids and DefaultSuggestDistance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{newID: uuid.NewString, suggestDistance: DefaultSuggestDistance}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile matches bank against book with balances taken from the sets themselves.
func (e *Engine) Reconcile(bank []BankTransaction, book []BookTransaction) Result {
	return e.Run(Request{Bank: bank, Book: book})
}

// Reconcile runs a default engine.
func Reconcile(bank []BankTransaction, book []BookTransaction) Result {
	return NewEngine().Reconcile(bank, book)
}

// Run reconciles req. The input slices are not modified.
func (e *Engine) Run(req Request) Result {
	bank := e.prepare(req.Bank)
	book := e.prepare(req.Book)

	res := Result{
		RunID:         e.newID(),
		BankBalance:   balance(req.BankBalance, bank),
		BookBalance:   balance(req.BookBalance, book),
		MatchedPairs:  []Pair{},
		UnmatchedBank: []BankTransaction{},
		UnmatchedBook: []BookTransaction{},
		Suggestions:   []Suggestion{},
		bankState:     make(map[string]State, len(bank)),
		bookState:     make(map[string]State, len(book)),
	}

	// Book indexes per key, in canonical order; the first unused one wins.
	open := make(map[key][]int)
	for i, t := range book {
		if k, ok := keyOf(t); ok {
			open[k] = append(open[k], i)
		}
	}
	bookMatched := make([]bool, len(book))
	for _, b := range bank {
		k, ok := keyOf(b)
		if q := open[k]; ok && len(q) > 0 {
			j := q[0]
			open[k] = q[1:]
			bookMatched[j] = true
			res.MatchedPairs = append(res.MatchedPairs, Pair{Bank: b, Book: book[j]})
			res.bankState[b.ID] = Matched
			continue
		}
		res.bankState[b.ID] = Unmatched
		res.UnmatchedBank = append(res.UnmatchedBank, b)
	}
	for j, t := range book {
		if bookMatched[j] {
			res.bookState[t.ID] = Matched
			continue
		}
		res.bookState[t.ID] = Unmatched
		res.UnmatchedBook = append(res.UnmatchedBook, t)
	}

	for _, t := range res.UnmatchedBank {
		switch t.Amount.Sign() {
		case 1:
			res.OutstandingDeposits = res.OutstandingDeposits.Add(t.Amount)
		case -1:
			res.BankFees = res.BankFees.Add(t.Amount.Abs())
		}
	}
	for _, t := range res.UnmatchedBook {
		if t.Amount.IsNegative() {
			res.OutstandingChecks = res.OutstandingChecks.Add(t.Amount.Abs())
		}
	}
	res.AdjustedBankBalance = res.BankBalance.
		Add(res.OutstandingDeposits).
		Sub(res.OutstandingChecks).
		Sub(res.BankFees)
	res.AdjustedBookBalance = res.BookBalance
	res.Difference = res.AdjustedBankBalance.Sub(res.AdjustedBookBalance)

	if e.suggestDistance > 0 {
		res.Suggestions = e.suggest(res.UnmatchedBank, res.UnmatchedBook)
	}
	return res
}

type key struct {
	ref    string
	amount money.Money
}

// keyOf returns the matching key. Transactions without a reference never match.
func keyOf(t Transaction) (key, bool) {
	ref := strings.TrimSpace(t.Reference)
	if ref == "" {
		return key{}, false
	}
	return key{ref: ref, amount: t.Amount.Abs()}, true
}

// prepare copies ts into canonical order and makes every id unique. Missing
// ids get a generated one. A repeated id keeps its first occurrence in
// canonical order and later ones become "<id>#2", "<id>#3" and so on. Ids are
// assigned after sorting; transactions tie only with identical ones, so the
// resulting partition is still order independent.
func (e *Engine) prepare(ts []Transaction) []Transaction {
	out := slices.Clone(ts)
	slices.SortStableFunc(out, compare)
	taken := make(map[string]bool, len(out))
	for _, t := range out {
		if t.ID != "" {
			taken[t.ID] = true
		}
	}
	seen := make(map[string]bool, len(out))
	for i := range out {
		id := out[i].ID
		if id == "" {
			id = e.newID()
		}
		if seen[id] {
			base := id
			for n := 2; seen[id] || taken[id]; n++ {
				id = base + "#" + strconv.Itoa(n)
			}
		}
		seen[id] = true
		out[i].ID = id
	}
	return out
}

func compare(a, b Transaction) int {
	return cmp.Or(
		strings.Compare(strings.TrimSpace(a.Reference), strings.TrimSpace(b.Reference)),
		cmp.Compare(a.Amount.Abs(), b.Amount.Abs()),
		a.Date.Compare(b.Date),
		strings.Compare(a.ID, b.ID),
		cmp.Compare(a.Amount, b.Amount),
		strings.Compare(a.Description, b.Description),
	)
}

func balance(given *money.Money, ts []Transaction) money.Money {
	if given != nil {
		return *given
	}
	var sum money.Money
	for _, t := range ts {
		sum = sum.Add(t.Amount)
	}
	return sum
}

func (e *Engine) suggest(bank []BankTransaction, book []BookTransaction) []Suggestion {
	out := []Suggestion{}
	for _, b := range bank {
		if strings.TrimSpace(b.Reference) == "" {
			continue
		}
		for _, k := range book {
			if strings.TrimSpace(k.Reference) == "" || b.Amount.Abs() != k.Amount.Abs() {
				continue
			}
			d := levenshtein.ComputeDistance(
				strings.ToUpper(strings.TrimSpace(b.Reference)),
				strings.ToUpper(strings.TrimSpace(k.Reference)),
			)
			if d <= e.suggestDistance {
				out = append(out, Suggestion{BankID: b.ID, BookID: k.ID, Distance: d})
			}
		}
	}
	return out
}
