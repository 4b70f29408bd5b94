package vault

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/currency"
)

// PriceFeed is the Vault's oracle collaborator (§4.1). It is declared here,
// not imported from the pricefeed package, so that package can depend on
// nothing from vault and the two never form an import cycle; pricefeed.Feed
// satisfies this interface structurally.
type PriceFeed interface {
	GetPrice(ctx context.Context, token currency.Token, maximise bool) (*uint256.Int, error)
}
