package serx

// Environment variable names
const (
	// EnvDBPath is the directory holding the SQLite database.
	// Default: .serx at the project root
	EnvDBPath = "SERX_DB_PATH"

	// EnvDBFilename is the filename of the SQLite database.
	// Default: serx.db
	EnvDBFilename = "SERX_DB_FILENAME"

	// EnvDefinitions is the path of the YAML serializer definitions file.
	EnvDefinitions = "SERX_DEFINITIONS"

	// EnvInMemory selects a private in-memory database when set to a true value ("1", "true").
	EnvInMemory = "SERX_IN_MEMORY"
)

// Default values
const (
	DefaultDBPath          = ".serx"
	DefaultDBFilename      = "serx.db"
	DefaultDefinitionsFile = "serializers.yaml"
)

// DefinitionsVersion is the only definitions file version understood.
const DefinitionsVersion = "1"
