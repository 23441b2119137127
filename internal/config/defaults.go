package config

const (
	defaultConfigPath             = "~/.config/marclink/config.toml"
	defaultIndexDir               = "~/.local/share/marclink/index"
	defaultLogDir                 = "~/.local/share/marclink/logs"
	defaultWorkDir                = "~/.local/share/marclink/work"
	defaultGuesserStoreFile       = "guesser.db"
	defaultMaxControlNumberLength = 10
	defaultGuesserBatchSize       = 5000
	defaultMissingPartnersFile    = "missing_partners.list"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IndexDir: defaultIndexDir,
			LogDir:   defaultLogDir,
			WorkDir:  defaultWorkDir,
		},
		Merge: Merge{
			SerialsOnly:             true,
			ImplicitLinks:           true,
			NamespacePrefixes:       []string{"(DE-627)", "(DE-576)"},
			CrossLinkTags:           []string{"775", "776"},
			UplinkTags:              []string{"800", "810", "830", "773", "776"},
			StandardNumberSubfields: []string{"022a", "029a", "440x", "490x", "730x", "773x", "776x", "780x", "785x"},
			MissingPartnersFile:     defaultMissingPartnersFile,
		},
		Guesser: Guesser{
			StoreFile:              defaultGuesserStoreFile,
			MaxControlNumberLength: defaultMaxControlNumberLength,
			BatchSize:              defaultGuesserBatchSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
