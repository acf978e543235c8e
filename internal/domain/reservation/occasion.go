package reservation

import "strings"

var celebrationMarkers = []string{"birthday", "anniversary", "день рождения", "годовщина"}

// IsCelebration reports whether an occasion label calls for congratulating
// the guests (birthday or anniversary).
func IsCelebration(occasion string) bool {
	o := strings.ToLower(occasion)
	for _, m := range celebrationMarkers {
		if strings.Contains(o, m) {
			return true
		}
	}
	return false
}
