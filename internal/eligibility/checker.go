// Package eligibility evaluates wallets against the access criteria
// configured on a gate.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/charmverse/token-gate/internal/chain"
	"github.com/charmverse/token-gate/internal/domain"
)

// POAPHolder checks POAP possession for a wallet
type POAPHolder interface {
	HoldsEvent(ctx context.Context, address string, eventID int64) (bool, error)
}

// Checker evaluates locks against on-chain and POAP state
type Checker struct {
	chains *chain.Clients
	poap   POAPHolder
}

// NewChecker creates an eligibility checker
func NewChecker(chains *chain.Clients, poap POAPHolder) *Checker {
	return &Checker{chains: chains, poap: poap}
}

// GateResult is the outcome of evaluating a wallet against a whole gate
type GateResult struct {
	Eligible bool
	// LockID is the first lock the wallet satisfies
	LockID uuid.UUID
	// Results holds the per-lock outcomes in lock order
	Results []domain.EligibilityResult
}

// Evaluate determines whether the wallet satisfies one lock. On-chain or POAP
// query failures yield an ineligible result with Retryable set rather than a
// silent "does not hold".
func (c *Checker) Evaluate(ctx context.Context, address string, chainID int64, lock *domain.Lock) domain.EligibilityResult {
	switch lock.LockType {
	case domain.LockTypeERC20:
		return c.evaluateERC20(ctx, address, chainID, lock)
	case domain.LockTypeERC721:
		return c.evaluateERC721(ctx, address, chainID, lock)
	case domain.LockTypePOAP:
		return c.evaluatePOAP(ctx, address, lock)
	case domain.LockTypeWhitelist:
		return evaluateWhitelist(address, lock)
	default:
		return domain.EligibilityResult{Reason: fmt.Sprintf("unknown lock type %q", lock.LockType)}
	}
}

// EvaluateGate applies OR semantics across the gate's locks: the wallet is
// eligible iff at least one lock individually evaluates eligible. A gate with
// zero locks denies all access.
func (c *Checker) EvaluateGate(ctx context.Context, address string, chainID int64, locks []domain.Lock) GateResult {
	result := GateResult{Results: make([]domain.EligibilityResult, 0, len(locks))}
	for i := range locks {
		r := c.Evaluate(ctx, address, chainID, &locks[i])
		result.Results = append(result.Results, r)
		if r.Eligible && !result.Eligible {
			result.Eligible = true
			result.LockID = locks[i].ID
		}
	}
	return result
}

func (c *Checker) evaluateERC20(ctx context.Context, address string, chainID int64, lock *domain.Lock) domain.EligibilityResult {
	if chainID != lock.TokenChainID {
		return domain.EligibilityResult{
			Reason: fmt.Sprintf("wallet is on chain %d but the token requires chain %d", chainID, lock.TokenChainID),
		}
	}

	client, err := c.chains.Get(lock.TokenChainID)
	if err != nil {
		return retryable(err)
	}

	balance, err := client.ERC20Balance(ctx, lock.TokenAddress, address)
	if err != nil {
		log.Warn().Err(err).
			Int64("chain_id", lock.TokenChainID).
			Str("contract", lock.TokenAddress).
			Msg("ERC-20 balance check failed")
		return retryable(err)
	}

	if balance.Cmp(big.NewInt(lock.TokenMin)) < 0 {
		return domain.EligibilityResult{
			Reason: fmt.Sprintf("balance %s is below the required minimum of %d %s", balance, lock.TokenMin, lock.TokenSymbol),
		}
	}
	return domain.EligibilityResult{Eligible: true}
}

func (c *Checker) evaluateERC721(ctx context.Context, address string, chainID int64, lock *domain.Lock) domain.EligibilityResult {
	if chainID != lock.TokenChainID {
		return domain.EligibilityResult{
			Reason: fmt.Sprintf("wallet is on chain %d but the NFT requires chain %d", chainID, lock.TokenChainID),
		}
	}

	client, err := c.chains.Get(lock.TokenChainID)
	if err != nil {
		return retryable(err)
	}

	ids, err := client.ERC721Holdings(ctx, lock.TokenAddress, address)
	if err != nil {
		if errors.Is(err, chain.ErrNotEnumerable) {
			// Cannot enforce the blacklist without enumeration; fall back to
			// the raw count only when no blacklist is configured.
			if len(lock.TokenBlacklist) > 0 {
				return domain.EligibilityResult{
					Reason: "contract does not support token enumeration required for this lock",
				}
			}
			return c.evaluateERC721Count(ctx, address, lock, client)
		}
		log.Warn().Err(err).
			Int64("chain_id", lock.TokenChainID).
			Str("contract", lock.TokenAddress).
			Msg("ERC-721 holdings check failed")
		return retryable(err)
	}

	blacklist := make(map[string]struct{}, len(lock.TokenBlacklist))
	for _, id := range lock.TokenBlacklist {
		blacklist[id] = struct{}{}
	}

	held := 0
	for _, id := range ids {
		if _, blocked := blacklist[id.String()]; !blocked {
			held++
		}
	}

	if int64(held) < lock.TokenMin {
		return domain.EligibilityResult{
			Reason: fmt.Sprintf("wallet holds %d qualifying NFTs but %d are required", held, lock.TokenMin),
		}
	}
	return domain.EligibilityResult{Eligible: true}
}

func (c *Checker) evaluateERC721Count(ctx context.Context, address string, lock *domain.Lock, client chain.Client) domain.EligibilityResult {
	count, err := client.ERC721Count(ctx, lock.TokenAddress, address)
	if err != nil {
		return retryable(err)
	}
	if count.Cmp(big.NewInt(lock.TokenMin)) < 0 {
		return domain.EligibilityResult{
			Reason: fmt.Sprintf("wallet holds %s NFTs but %d are required", count, lock.TokenMin),
		}
	}
	return domain.EligibilityResult{Eligible: true}
}

func (c *Checker) evaluatePOAP(ctx context.Context, address string, lock *domain.Lock) domain.EligibilityResult {
	holds, err := c.poap.HoldsEvent(ctx, address, lock.POAPEventID)
	if err != nil {
		log.Warn().Err(err).
			Int64("event_id", lock.POAPEventID).
			Msg("POAP holder check failed")
		return retryable(err)
	}
	if !holds {
		return domain.EligibilityResult{
			Reason: fmt.Sprintf("wallet does not hold a POAP from %q", lock.POAPEventName),
		}
	}
	return domain.EligibilityResult{Eligible: true}
}

func evaluateWhitelist(address string, lock *domain.Lock) domain.EligibilityResult {
	for _, entry := range lock.AddressWhitelist {
		if strings.EqualFold(entry, address) {
			return domain.EligibilityResult{Eligible: true}
		}
	}
	return domain.EligibilityResult{Reason: "wallet address is not on the whitelist"}
}

func retryable(err error) domain.EligibilityResult {
	return domain.EligibilityResult{
		Reason:    "could not verify wallet holdings: " + err.Error(),
		Retryable: true,
	}
}
