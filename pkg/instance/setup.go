package instance

import (
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// Default memory bounds applied when a setup manifest leaves them unset.
const (
	DefaultMinRAMMB = 1024
	DefaultMaxRAMMB = 2048
)

// SetupConfig is the validated configuration an instance is created from.
type SetupConfig struct {
	// Name feeds the instance directory name, so path separators are
	// rejected outright (0x2F is '/', 0x5C is '\').
	Name        string   `json:"name" validate:"required,min=1,max=100,excludesall=0x2F0x5C"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Port        int      `json:"port" validate:"required,gt=0,lte=65535"`
	MinRAMMB    int      `json:"min_ram" validate:"gte=0"`
	MaxRAMMB    int      `json:"max_ram" validate:"gte=0"`
	AutoStart   bool     `json:"auto_start"`
	GameType    GameType `json:"game_type" validate:"required"`
	Flavour     Flavour  `json:"flavour" validate:"required"`
}

var validate = validator.New()

// BuildSetupConfig decodes the user-supplied creation manifest for the
// given game type and validates it. Unknown manifest keys are ignored so
// game implementations can carry extra fields. Every failure maps to
// BadRequest: the manifest is client input.
func BuildSetupConfig(gameType GameType, manifest map[string]any) (SetupConfig, error) {
	if !gameType.Valid() {
		return SetupConfig{}, apperrors.Newf(apperrors.CodeBadRequest, "unknown game type %q", gameType)
	}

	var config SetupConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &config,
		TagName: "json",
	})
	if err != nil {
		return SetupConfig{}, apperrors.Wrap(apperrors.CodeBadRequest, "failed to build manifest decoder", err)
	}
	if err := decoder.Decode(manifest); err != nil {
		return SetupConfig{}, apperrors.Wrap(apperrors.CodeBadRequest, "malformed setup manifest", err)
	}

	config.GameType = gameType
	config.Flavour = gameType.Flavour()
	if config.MinRAMMB == 0 {
		config.MinRAMMB = DefaultMinRAMMB
	}
	if config.MaxRAMMB == 0 {
		config.MaxRAMMB = DefaultMaxRAMMB
	}

	if err := validate.Struct(config); err != nil {
		return SetupConfig{}, apperrors.Wrap(apperrors.CodeBadRequest, "invalid setup manifest", err)
	}
	return config, nil
}
