package hint

import "codeberg.org/mutker/powerhintd/internal/errors"

const (
	ErrCatalogRead    = errors.ErrorCode("hint_catalog_read_failed")
	ErrCatalogInvalid = errors.ErrorCode("hint_catalog_invalid")
	ErrUnknownHint    = errors.ErrorCode("hint_unknown")
	ErrNodeType       = errors.ErrorCode("hint_node_type_unknown")
	ErrNodeWrite      = errors.ErrorCode("hint_node_write_failed")
	ErrNotRunning     = errors.ErrorCode("hint_manager_not_running")
)
