package domain

// SpaceConfig describes one embedding space the catalog is built from.
type SpaceConfig struct {
	Name       string
	Model      string
	Dimensions int
}

// Well-known embedding space names.
const (
	SpaceCNN = "cnn"
	SpaceViT = "vit"
)

// DefaultSpaces returns the two spaces the dish dataset is extracted into.
// The first entry is the primary space.
func DefaultSpaces() []SpaceConfig {
	return []SpaceConfig{
		{Name: SpaceCNN, Model: "EfficientNetB0", Dimensions: 1280},
		{Name: SpaceViT, Model: "google/vit-base-patch16-224", Dimensions: 768},
	}
}
