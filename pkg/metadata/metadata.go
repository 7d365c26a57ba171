// Package metadata builds and serializes NFT token metadata records: the
// name/description/image/attributes JSON uploaded next to each image.
package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// Attribute is one trait of a token.
//
// Value is a JSON scalar (string or integer). Attributes carry no uniqueness
// constraint; their order within a record is the insertion order.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// NftMetadata is the record generated per image.
//
// The declared field order is the serialization order. Image is only
// well-formed once the content it references has been uploaded (its CID is
// known). Records are never mutated after construction; they are serialized
// once, uploaded, written to disk, and discarded with the process.
type NftMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// ForSingleImage builds the record for a single-edition artwork.
//
// The name is the image's filename stem, the description embeds the original
// filename, and the image URI points straight at the uploaded file's CID.
func ForSingleImage(filename string, imageCID uploader.CID) NftMetadata {
	return NftMetadata{
		Name:        Stem(filename),
		Description: fmt.Sprintf("An exclusive 1/1 artwork, originally uploaded as %s.", filename),
		Image:       imageCID.URI(),
		Attributes: []Attribute{
			{TraitType: "type", Value: "single-edition artwork"},
		},
	}
}

// ForCollectionToken builds the record for one token of a collection.
//
// The image URI addresses the file inside the uploaded images folder, so all
// records of a batch share the folder CID and differ only in the trailing
// filename. The token id rides along as the "ID" attribute, serialized as a
// JSON integer.
func ForCollectionToken(collection string, tokenID uint64, folderCID uploader.CID, filename string) NftMetadata {
	return NftMetadata{
		Name:        fmt.Sprintf("%s #%d", collection, tokenID),
		Description: fmt.Sprintf("A piece of the %s genesis collection.", collection),
		Image:       fmt.Sprintf("%s/%s", folderCID.URI(), filename),
		Attributes: []Attribute{
			{TraitType: "ID", Value: tokenID},
		},
	}
}

// EncodeJSON serializes a record with 4-space indentation, keys in field
// order, numbers as JSON integers. The encoding round-trips losslessly.
func EncodeJSON(m NftMetadata) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata %q: %w", m.Name, err)
	}
	return data, nil
}
