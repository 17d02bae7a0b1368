package sqldb

import (
	"fmt"
	"strconv"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/TFMV/sqlgate/pkg/errors"
	"github.com/TFMV/sqlgate/pkg/models"
)

// Supported driver names. Each matches the name the driver registers with
// database/sql.
const (
	DriverOracle = "oracle"
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// Drivers lists the supported drivers.
var Drivers = []string{DriverOracle, DriverSQLite, DriverDuckDB}

// IsSupported reports whether driver is one of Drivers.
func IsSupported(driver string) bool {
	for _, d := range Drivers {
		if d == driver {
			return true
		}
	}
	return false
}

// ProbeStatement returns the cheapest statement that proves a session works.
func ProbeStatement(driver string) string {
	if driver == DriverOracle {
		return "SELECT 1 FROM dual"
	}
	return "SELECT 1"
}

// BuildDSN renders params as a data source name for params.Driver. Embedded
// engines are always opened read-only.
func BuildDSN(params models.ConnectionParams) (string, error) {
	switch params.Driver {
	case DriverOracle:
		if params.Host == "" || params.Service == "" {
			return "", errors.New(errors.CodeConfiguration, "oracle host and service are required")
		}
		options := map[string]string{}
		if params.ConnectTimeout > 0 {
			secs := int(params.ConnectTimeout.Seconds())
			if secs < 1 {
				secs = 1
			}
			options["CONNECTION TIMEOUT"] = strconv.Itoa(secs)
		}
		return go_ora.BuildUrl(params.Host, params.Port, params.Service, params.Username, params.Password, options), nil

	case DriverSQLite:
		switch {
		case params.Path == "":
			return "", errors.New(errors.CodeConfiguration, "sqlite database path is required")
		case params.Path == ":memory:", strings.HasPrefix(params.Path, "file:"):
			return params.Path, nil
		default:
			return "file:" + params.Path + "?mode=ro", nil
		}

	case DriverDuckDB:
		if params.Path == "" {
			// In-memory database.
			return "", nil
		}
		return params.Path + "?access_mode=read_only", nil

	default:
		return "", errors.New(errors.CodeConfiguration, fmt.Sprintf("unsupported database driver %q", params.Driver))
	}
}
