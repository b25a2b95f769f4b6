// Package allbackends blank-imports every built-in back-end so a caller who
// wants shm/file/memcache/redis all available can do so with one import,
// the same convenience pattern database/sql drivers use.
//
// © 2025 oauth2-cache authors. MIT License.
package allbackends

import (
	_ "github.com/zmartzone/oauth2-cache/internal/filestore"
	_ "github.com/zmartzone/oauth2-cache/internal/memcachestore"
	_ "github.com/zmartzone/oauth2-cache/internal/redisstore"
	_ "github.com/zmartzone/oauth2-cache/internal/shmstore"
)
