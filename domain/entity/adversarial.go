package entity

import (
	"fmt"
)

// DefaultAdversarialUserCount is the number of compromised customers per run
const DefaultAdversarialUserCount = 10

// adversarialIPCount addresses 185.220.101.1 through 185.220.101.19
const adversarialIPCount = 19

// Shuffler is the subset of a random source needed to draw users
type Shuffler interface {
	Intn(n int) int
}

// AdversarialSet is the fixed group of compromised users and hostile source
// addresses that fraud and brute-force records are attributed to. It is drawn
// once and never changes afterwards.
type AdversarialSet struct {
	users   []string
	ips     []string
	userSet map[string]struct{}
	ipSet   map[string]struct{}
}

// NewAdversarialSet draws userCount distinct users from the pool
func NewAdversarialSet(rnd Shuffler, pools *Pools, userCount int) (*AdversarialSet, error) {
	if pools == nil {
		return nil, fmt.Errorf("pools are required")
	}
	if userCount <= 0 {
		return nil, fmt.Errorf("adversarial user count must be positive, got %d", userCount)
	}
	if userCount > len(pools.Users) {
		return nil, fmt.Errorf("adversarial user count %d exceeds user pool of %d", userCount, len(pools.Users))
	}

	// partial Fisher-Yates over a copy of the pool
	candidates := make([]string, len(pools.Users))
	copy(candidates, pools.Users)
	for i := 0; i < userCount; i++ {
		j := i + rnd.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	set := &AdversarialSet{
		users:   candidates[:userCount:userCount],
		ips:     make([]string, 0, adversarialIPCount),
		userSet: make(map[string]struct{}, userCount),
		ipSet:   make(map[string]struct{}, adversarialIPCount),
	}
	for _, u := range set.users {
		set.userSet[u] = struct{}{}
	}
	for i := 1; i <= adversarialIPCount; i++ {
		ip := fmt.Sprintf("185.220.101.%d", i)
		set.ips = append(set.ips, ip)
		set.ipSet[ip] = struct{}{}
	}

	return set, nil
}

// Users returns a copy of the compromised users
func (a *AdversarialSet) Users() []string {
	out := make([]string, len(a.users))
	copy(out, a.users)
	return out
}

// IPs returns a copy of the hostile source addresses
func (a *AdversarialSet) IPs() []string {
	out := make([]string, len(a.ips))
	copy(out, a.ips)
	return out
}

func (a *AdversarialSet) HasUser(user string) bool {
	_, ok := a.userSet[user]
	return ok
}

func (a *AdversarialSet) HasIP(ip string) bool {
	_, ok := a.ipSet[ip]
	return ok
}

// PickUser returns a uniformly chosen compromised user
func (a *AdversarialSet) PickUser(rnd Shuffler) string {
	return a.users[rnd.Intn(len(a.users))]
}

// PickIP returns a uniformly chosen hostile source address
func (a *AdversarialSet) PickIP(rnd Shuffler) string {
	return a.ips[rnd.Intn(len(a.ips))]
}
