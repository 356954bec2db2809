package util

func IntPtr(v int) *int { return &v }

func DerefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
