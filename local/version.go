package local

import (
	"context"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// MinVersion is the oldest BLAST+ release whose output formats we parse
const MinVersion = ">= 2.9.0"

// Tools lists the BLAST+ binaries the runner uses
var Tools = []string{"blastn", "blastp", "blastx", "tblastn", "makeblastdb"}

var versionPattern = regexp.MustCompile(`(\d+\.\d+\.\d+)\+?`)

// VersionInfo is the parsed output of `<tool> -version`
type VersionInfo struct {
	Binary    string
	Version   *semver.Version
	Raw       string
	Supported bool
}

// Version runs `<binary> -version` and checks it against MinVersion
func (r *Runner) Version(ctx context.Context, binary string) (*VersionInfo, error) {
	res, err := r.run(ctx, binary, "-version")
	if err != nil {
		return nil, err
	}
	v, err := ParseVersion(res.stdout)
	if err != nil {
		return nil, errors.Wrapf(err, "%s -version", binary)
	}
	constraint, err := semver.NewConstraint(MinVersion)
	if err != nil {
		return nil, errors.Wrap(err, "invalid version constraint")
	}
	return &VersionInfo{
		Binary:    r.BinaryPath(binary),
		Version:   v,
		Raw:       res.stdout,
		Supported: constraint.Check(v),
	}, nil
}

// ParseVersion extracts the first x.y.z version from BLAST+ -version output
func ParseVersion(output string) (*semver.Version, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return nil, errors.Newf("no version number in %q", output)
	}
	v, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid version %q", m[1])
	}
	return v, nil
}
