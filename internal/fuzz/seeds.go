package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const maxSeedBytes = 64 << 10

var inlineSeeds = []string{
	"",
	"x = 1\n",
	"def f(x):\n    return x * 2\n",
	"def f(a, b):\n    if a and not b:\n        return a\n    return b\n",
	"def f(xs):\n    return [x for x in xs if x % 2 == 0]\n",
	"def f(s):\n    while len(s) > 3:\n        s = s[1:]\n    return s.upper()\n",
	"def f(d):\n    for k, v in d.items():\n        print(k, v)\n",
	"def f(x):\n    try:\n        return int(x)\n    except ValueError:\n        return 0\n",
	"import math\n\ndef f(r):\n    return math.pi * r ** 2\n",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range inlineSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

// addTestdataSeeds adds every *.py file under the repository testdata tree.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".py" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
