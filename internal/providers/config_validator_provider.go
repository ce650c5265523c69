package providers

import (
	"archivist/internal/structures"
	"errors"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return errors.New("config validation failed: " + v.Errors.String())
	}
	if cv.conf.Archive.WatchInterval < 0 {
		return errors.New("config validation failed: archive.watchInterval must not be negative")
	}
	return nil
}
