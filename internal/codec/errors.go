package codec

import "errors"

var (
	errTruncated       = errors.New("codec: truncated field")
	errUnsupportedType = errors.New("codec: unsupported field type")
)
