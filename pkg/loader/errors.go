package loader

import (
	"errors"

	"github.com/replicate/pload/pkg/connector"
	"github.com/replicate/pload/pkg/options"
)

var (
	ErrRemoteUpdateNotPossible = errors.New("remote update not possible")
	ErrCannotLoadLocalFile     = errors.New("cannot load local file")
	ErrInvalidDateTime         = errors.New("invalid date time")
)

// Errors raised below the loader, re-exported so callers need a single import.
var (
	ErrInvalidOption        = options.ErrInvalidOption
	ErrFieldMissing         = options.ErrFieldMissing
	ErrNoValidConnector     = connector.ErrNoValidConnector
	ErrFileNotReadable      = connector.ErrFileNotReadable
	ErrConnectionFailed     = connector.ErrConnectionFailed
	ErrCannotLoadRemoteFile = connector.ErrCannotLoadRemoteFile
)

const (
	FieldLocalFile        = "localFile"
	FieldRemoteDataURL    = "remoteDataUrl"
	FieldRemoteVersionURL = "remoteVerUrl"
)
