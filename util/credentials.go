package util

import (
	"github.com/bgentry/go-netrc/netrc"
)

// EarthdataHost is the login host whose netrc entry authorizes LP DAAC downloads
const EarthdataHost = "urs.earthdata.nasa.gov"

// Credentials is a login/password pair read from a netrc file
type Credentials struct {
	Login    string
	Password string
}

// EarthdataCredentials reads the Earthdata login from the netrc file at path.
// A missing file, a missing machine entry or an empty login is an
// Authentication error.
func EarthdataCredentials(ctx LogContext, path string) (*Credentials, error) {
	machine, err := netrc.FindMachine(path, EarthdataHost)
	if err != nil {
		return nil, WrapError(Authentication, LogSimpleErr(ctx, "Failed to read netrc file "+path+".", err))
	}
	if machine == nil || machine.IsDefault() || machine.Login == "" {
		LogAlert(ctx, "No "+EarthdataHost+" entry found in "+path)
		return nil, NewError(Authentication, "no credentials for %s in %s", EarthdataHost, path)
	}
	LogInfo(ctx, "Authentication to NASA Earthdata Login credentials set successfully.")
	return &Credentials{Login: machine.Login, Password: machine.Password}, nil
}
