package sceneindex

import (
	"database/sql"

	"github.com/Vizzuality/HLS-data-project/util"
)

// Context is the context for a scene index operation
type Context struct {
	DB        *sql.DB
	sessionID string
}

// AppName returns the application name
func (c *Context) AppName() string {
	return util.AppName
}

// SessionID returns a Session ID, creating one if needed
func (c *Context) SessionID() string {
	if c.sessionID == "" {
		c.sessionID, _ = util.PsuUUID()
	}
	return c.sessionID
}

// LogRootDir returns an empty string
func (c *Context) LogRootDir() string {
	return ""
}
