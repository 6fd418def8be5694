//go:build windows

package voice

func candidates() []string {
	return []string{"powershell", "pwsh"}
}

func players() []string {
	return []string{"powershell", "pwsh"}
}
