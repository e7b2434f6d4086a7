// Package lpdist computes LP-token distribution plans applied at graduation.
// Plan construction is pure: a strategy maps (LP amount, holder snapshot) to
// a plan without touching any state, so the split logic is testable in
// isolation from the transfer mechanics.
package lpdist

import (
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedmath"
)

// Strategy selects what happens to the LP tokens received at graduation.
type Strategy uint8

const (
	// FullBurn destroys the entire LP amount.
	FullBurn Strategy = iota
	// CommunityRewards burns 80% and splits 20% pro-rata across the top
	// holders by balance at the graduation instant.
	CommunityRewards
	// CreatorAllocation burns 90% and sends 10% to the recorded deployer.
	CreatorAllocation
	// DaoGovernance burns 80% and sends 20% to the governance recipient.
	DaoGovernance
)

// TopHolderCount caps how many holders share the CommunityRewards slice.
const TopHolderCount = 10

func (s Strategy) String() string {
	switch s {
	case FullBurn:
		return "full_burn"
	case CommunityRewards:
		return "community_rewards"
	case CreatorAllocation:
		return "creator_allocation"
	case DaoGovernance:
		return "dao_governance"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the four defined strategies.
func (s Strategy) Valid() bool { return s <= DaoGovernance }

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(v string) (Strategy, error) {
	switch v {
	case "full_burn", "":
		return FullBurn, nil
	case "community_rewards":
		return CommunityRewards, nil
	case "creator_allocation":
		return CreatorAllocation, nil
	case "dao_governance":
		return DaoGovernance, nil
	default:
		return 0, fmt.Errorf("unknown lp distribution strategy %q", v)
	}
}

// Holder is one entry of the balance snapshot taken at graduation.
type Holder struct {
	Address solana.PublicKey
	Balance uint64
}

// Snapshot captures everything a strategy may look at.
type Snapshot struct {
	Holders    []Holder
	Creator    solana.PublicKey
	Governance solana.PublicKey
}

// Transfer is one outbound LP payment of a plan.
type Transfer struct {
	To     solana.PublicKey
	Amount *uint256.Int
}

// Plan is the exact split of a received LP amount. Burn plus all transfer
// amounts always equals the input: integer remainders from pro-rata splits
// are folded into the burn share, never lost or duplicated.
type Plan struct {
	Strategy  Strategy
	Burn      *uint256.Int
	Transfers []Transfer
}

// Total returns burn + all transfers.
func (p *Plan) Total() *uint256.Int {
	total := p.Burn.Clone()
	for _, tr := range p.Transfers {
		total.Add(total, tr.Amount)
	}
	return total
}

// Build constructs the plan for the given strategy.
func Build(s Strategy, lpAmount *uint256.Int, snap Snapshot) (*Plan, error) {
	switch s {
	case FullBurn:
		return &Plan{Strategy: s, Burn: lpAmount.Clone()}, nil
	case CommunityRewards:
		return communityPlan(lpAmount, snap)
	case CreatorAllocation:
		return recipientPlan(s, lpAmount, snap.Creator, 10)
	case DaoGovernance:
		return recipientPlan(s, lpAmount, snap.Governance, 20)
	default:
		return nil, fmt.Errorf("unknown lp distribution strategy %d", s)
	}
}

// recipientPlan sends pct% to a single recipient and burns the rest. A zero
// recipient degrades to a full burn so LP tokens can never be sent to the
// zero address.
func recipientPlan(s Strategy, lpAmount *uint256.Int, to solana.PublicKey, pct uint64) (*Plan, error) {
	if to.IsZero() {
		return &Plan{Strategy: s, Burn: lpAmount.Clone()}, nil
	}
	share, err := fixedmath.MulDiv(lpAmount, fixedmath.U64(pct), fixedmath.U64(100))
	if err != nil {
		return nil, err
	}
	burn, err := fixedmath.Sub(lpAmount, share)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Strategy: s, Burn: burn}
	if !share.IsZero() {
		plan.Transfers = []Transfer{{To: to, Amount: share}}
	}
	return plan, nil
}

func communityPlan(lpAmount *uint256.Int, snap Snapshot) (*Plan, error) {
	top := topHolders(snap.Holders, TopHolderCount)

	var totalBalance uint64
	for _, h := range top {
		totalBalance += h.Balance
	}
	if len(top) == 0 || totalBalance == 0 {
		return &Plan{Strategy: CommunityRewards, Burn: lpAmount.Clone()}, nil
	}

	pool, err := fixedmath.MulDiv(lpAmount, fixedmath.U64(20), fixedmath.U64(100))
	if err != nil {
		return nil, err
	}

	plan := &Plan{Strategy: CommunityRewards}
	distributed := uint256.NewInt(0)
	for _, h := range top {
		cut, err := fixedmath.MulDiv(pool, fixedmath.U64(h.Balance), fixedmath.U64(totalBalance))
		if err != nil {
			return nil, err
		}
		if cut.IsZero() {
			continue
		}
		plan.Transfers = append(plan.Transfers, Transfer{To: h.Address, Amount: cut})
		distributed.Add(distributed, cut)
	}
	burn, err := fixedmath.Sub(lpAmount, distributed)
	if err != nil {
		return nil, err
	}
	plan.Burn = burn
	return plan, nil
}

// topHolders returns the n largest holders, ordered by balance descending
// with the address as a deterministic tie break.
func topHolders(holders []Holder, n int) []Holder {
	sorted := make([]Holder, len(holders))
	copy(sorted, holders)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Balance != sorted[j].Balance {
			return sorted[i].Balance > sorted[j].Balance
		}
		return sorted[i].Address.String() < sorted[j].Address.String()
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
