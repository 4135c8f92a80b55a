package scenario

import (
	"bytes"
	_ "embed"
)

//go:embed drugstore.yaml
var drugstoreYAML []byte

// Default returns the embedded "Drugstore in Macon" campaign.
func Default() (*File, error) {
	return LoadFromReader(bytes.NewReader(drugstoreYAML))
}
