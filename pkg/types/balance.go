package types

// DefaultBalance is the pool load-balancing method used when an app
// declares none.
const DefaultBalance = "round-robin"

// lbMethods is the closed set of pool load-balancing methods accepted from
// orchestrator labels. Anything else invalidates the declaring service.
var lbMethods = map[string]struct{}{
	"dynamic-ratio-member":              {},
	"dynamic-ratio-node":                {},
	"fastest-app-response":              {},
	"fastest-node":                      {},
	"least-connections-member":          {},
	"least-connections-node":            {},
	"least-sessions":                    {},
	"observed-member":                   {},
	"observed-node":                     {},
	"predictive-member":                 {},
	"predictive-node":                   {},
	"ratio-least-connections-member":    {},
	"ratio-least-connections-node":      {},
	"ratio-member":                      {},
	"ratio-node":                        {},
	"ratio-session":                     {},
	"round-robin":                       {},
	"weighted-least-connections-member": {},
	"weighted-least-connections-node":   {},
}

// ValidBalance reports whether the load-balancing method is supported.
func ValidBalance(method string) bool {
	_, ok := lbMethods[method]
	return ok
}
