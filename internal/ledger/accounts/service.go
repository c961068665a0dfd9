package accounts

import (
	"context"
	"sort"

	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// maxDepth caps parent-chain walks so a corrupted tree cannot loop forever.
const maxDepth = 32

// Service owns chart of accounts registration and the hierarchy view.
type Service struct {
	repo Repository
}

// NewService constructs the registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateAccount registers a new account. The account code must be unique among
// non-removed accounts and the parent, when given, must exist and not form a
// cycle. Level is derived from the parent chain.
func (s *Service) CreateAccount(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	level := 1
	if in.ParentAccount != nil {
		parentLevel, err := s.walkParentChain(ctx, *in.ParentAccount)
		if err != nil {
			return Account{}, err
		}
		level = parentLevel + 1
	}
	account := Account{
		AccountCode:      in.AccountCode,
		AccountName:      in.AccountName,
		AccountType:      AccountType(in.AccountType),
		AccountSubType:   in.AccountSubType,
		NormalBalance:    NormalBalance(in.NormalBalance),
		OpeningBalance:   shared.Round2(in.OpeningBalance),
		CurrentBalance:   shared.Round2(in.OpeningBalance),
		ParentAccount:    in.ParentAccount,
		Level:            level,
		IsDetailAccount:  in.IsDetailAccount,
		AllowManualEntry: in.AllowManualEntry,
		Status:           AccountStatusActive,
	}
	return s.repo.Insert(ctx, account)
}

// walkParentChain returns the parent's level, failing with ErrInvalidParent if
// the parent is missing or the chain loops.
func (s *Service) walkParentChain(ctx context.Context, parentID int64) (int, error) {
	seen := map[int64]bool{}
	id := parentID
	depth := 0
	var parentLevel int
	for {
		if seen[id] || depth >= maxDepth {
			return 0, shared.ErrInvalidParent
		}
		seen[id] = true
		account, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return 0, shared.ErrInvalidParent
		}
		if depth == 0 {
			parentLevel = account.Level
		}
		if account.ParentAccount == nil {
			return parentLevel, nil
		}
		id = *account.ParentAccount
		depth++
	}
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode returns a single account by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (Account, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns all non-removed accounts ordered by code.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	return s.repo.List(ctx, activeOnly)
}

// ApplyBalanceDelta atomically increments an account's running balance.
// Journal posting uses its own transactional variant; this entry point serves
// out-of-band corrections and the integrity job's verification fixtures.
func (s *Service) ApplyBalanceDelta(ctx context.Context, id int64, delta float64) error {
	return s.repo.ApplyBalanceDelta(ctx, id, shared.Round2(delta))
}

// Deactivate marks an account inactive. Accounts with posted lines or a
// non-zero running balance stay active so history remains explicable.
func (s *Service) Deactivate(ctx context.Context, id int64) (Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	inUse, err := s.repo.HasPostedLines(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if inUse || shared.Round2(account.CurrentBalance) != 0 {
		return Account{}, shared.ErrAccountInUse
	}
	if err := s.repo.UpdateStatus(ctx, id, AccountStatusInactive); err != nil {
		return Account{}, err
	}
	account.Status = AccountStatusInactive
	return account, nil
}

// Remove soft deletes an account, freeing its code for reuse by later
// registrations. The usage guards match Deactivate, and an account still
// referenced as a parent cannot be removed.
func (s *Service) Remove(ctx context.Context, id int64) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	inUse, err := s.repo.HasPostedLines(ctx, id)
	if err != nil {
		return err
	}
	if inUse || shared.Round2(account.CurrentBalance) != 0 {
		return shared.ErrAccountInUse
	}
	all, err := s.repo.List(ctx, false)
	if err != nil {
		return err
	}
	for _, candidate := range all {
		if candidate.ParentAccount != nil && *candidate.ParentAccount == id {
			return shared.ErrAccountInUse
		}
	}
	return s.repo.SoftDelete(ctx, id)
}

// Hierarchy assembles the lazy account tree: root accounts with nested children.
func (s *Service) Hierarchy(ctx context.Context) ([]*Node, error) {
	accounts, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	return BuildTree(accounts), nil
}

// BuildTree converts a flat account list into root nodes with nested children.
// Orphans whose parent is absent from the list surface as roots rather than
// being dropped.
func BuildTree(accounts []Account) []*Node {
	nodes := make(map[int64]*Node, len(accounts))
	for _, account := range accounts {
		nodes[account.ID] = &Node{Account: account}
	}
	var roots []*Node
	for _, account := range accounts {
		node := nodes[account.ID]
		if account.ParentAccount != nil {
			if parent, ok := nodes[*account.ParentAccount]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].AccountCode < nodes[j].AccountCode })
	for _, node := range nodes {
		sortNodes(node.Children)
	}
}
