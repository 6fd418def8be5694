//go:build !linux && !darwin && !windows

package voice

func candidates() []string {
	return []string{"espeak-ng", "espeak"}
}

func players() []string {
	return []string{"aplay", "paplay"}
}
