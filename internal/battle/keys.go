package battle

var (
	battlesPrefix = []byte("battles/")
	reportsPrefix = []byte("reports/")
	openPrefix    = []byte("open/")
	coldPrefix    = []byte("cold/")
	activeKey     = []byte("active")
)

func join(prefix []byte, parts ...string) []byte {
	n := len(prefix)
	for _, p := range parts {
		n += len(p) + 1
	}
	k := make([]byte, 0, n)
	k = append(k, prefix...)
	for i, p := range parts {
		if i > 0 {
			k = append(k, '/')
		}
		k = append(k, p...)
	}
	return k
}

func keyBattle(id string) []byte { return join(battlesPrefix, id) }
func keyReport(id, typ string) []byte { return join(reportsPrefix, id, typ) }
func keyReportsOf(id string) []byte { return append(join(reportsPrefix, id), '/') }
func keyOpen(id, typ string) []byte { return join(openPrefix, id, typ) }
func keyCold(id string) []byte { return join(coldPrefix, id) }
