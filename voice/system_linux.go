//go:build linux

package voice

func candidates() []string {
	return []string{"espeak-ng", "espeak"}
}

func players() []string {
	return []string{"aplay", "paplay"}
}
