//go:build !windows

package mute

import "errors"

type wasapiSession struct {
	pid uint32
}

func (s *wasapiSession) release()                  {}
func (s *wasapiSession) setMute(mute bool) error    { return errors.New("mute: unsupported outside windows") }
func (s *wasapiSession) getMute() (bool, error)      { return false, errors.New("mute: unsupported outside windows") }

func enumerateSessions() ([]*wasapiSession, error) {
	return nil, errors.New("mute: WASAPI enumeration requires windows")
}
