//go:build windows

package mute

import (
	"fmt"

	"github.com/moutend/go-wca/pkg/wca"
)

// wasapiSession is one enumerated render-endpoint audio session: its
// owning process ID and a handle usable to mute/unmute it.
type wasapiSession struct {
	pid     uint32
	control *wca.IAudioSessionControl2
	volume  *wca.ISimpleAudioVolume
}

func (s *wasapiSession) release() {
	if s.volume != nil {
		s.volume.Release()
	}
	if s.control != nil {
		s.control.Release()
	}
}

// enumerateSessions opens the default render endpoint's session manager
// and returns every active audio session. Callers must release() each
// returned session.
func enumerateSessions() ([]*wasapiSession, error) {
	guard := enterCOM()
	defer guard.release()

	var enumerator *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(
		wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL,
		wca.IID_IMMDeviceEnumerator, &enumerator,
	); err != nil {
		return nil, fmt.Errorf("mute: CoCreateInstance: %w", err)
	}
	defer enumerator.Release()

	var device *wca.IMMDevice
	if err := enumerator.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &device); err != nil {
		return nil, fmt.Errorf("mute: GetDefaultAudioEndpoint: %w", err)
	}
	defer device.Release()

	var sessionManager *wca.IAudioSessionManager2
	if err := device.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &sessionManager); err != nil {
		return nil, fmt.Errorf("mute: Activate IAudioSessionManager2: %w", err)
	}
	defer sessionManager.Release()

	var sessionEnum *wca.IAudioSessionEnumerator
	if err := sessionManager.GetSessionEnumerator(&sessionEnum); err != nil {
		return nil, fmt.Errorf("mute: GetSessionEnumerator: %w", err)
	}
	defer sessionEnum.Release()

	var count int
	if err := sessionEnum.GetCount(&count); err != nil {
		return nil, fmt.Errorf("mute: GetCount: %w", err)
	}

	sessions := make([]*wasapiSession, 0, count)
	for i := 0; i < count; i++ {
		var ctl *wca.IAudioSessionControl
		if err := sessionEnum.GetSession(i, &ctl); err != nil {
			continue
		}

		ctl2Obj, err := ctl.QueryInterface(wca.IID_IAudioSessionControl2)
		ctl.Release()
		if err != nil {
			continue
		}
		ctl2 := (*wca.IAudioSessionControl2)(ctl2Obj)

		var pid uint32
		if err := ctl2.GetProcessId(&pid); err != nil {
			ctl2.Release()
			continue
		}

		volObj, err := ctl2.QueryInterface(wca.IID_ISimpleAudioVolume)
		if err != nil {
			ctl2.Release()
			continue
		}
		vol := (*wca.ISimpleAudioVolume)(volObj)

		sessions = append(sessions, &wasapiSession{pid: pid, control: ctl2, volume: vol})
	}

	return sessions, nil
}

func (s *wasapiSession) setMute(mute bool) error {
	return s.volume.SetMute(mute, nil)
}

func (s *wasapiSession) getMute() (bool, error) {
	var muted bool
	err := s.volume.GetMute(&muted)
	return muted, err
}
