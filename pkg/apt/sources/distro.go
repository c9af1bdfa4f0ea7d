package sources

import (
	"net/url"

	"github.com/nicwaller/apt-look/pkg/aptdistro"
)

// ToDistro builds the aptdistro.Distro this Entry refers to, applying the
// same flat-vs-named-suite detection the archive façade's Mount used to do
// inline: a Distribution of "." or "/" selects the flat repository layout
// (e.g. "deb https://pkgs.k8s.io/core:/stable:/v1.28/deb/ /"), everything
// else is a conventional dists/<name> suite.
func (e Entry) ToDistro(key aptdistro.KeyPolicy) (*aptdistro.Distro, error) {
	if _, err := url.Parse(e.URI); err != nil {
		return nil, err
	}

	if e.Distribution == "." || e.Distribution == "/" {
		return aptdistro.NewFlat(e.URI, e.Distribution, key)
	}
	return aptdistro.NewNamed(e.URI, e.Distribution, key)
}
