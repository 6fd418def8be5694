//go:build darwin

package voice

func candidates() []string {
	return []string{"say"}
}

func players() []string {
	return []string{"afplay"}
}
