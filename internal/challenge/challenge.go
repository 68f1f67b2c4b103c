// Package challenge manages the short-lived nginx configuration that
// answers http-01 validation requests. The challenge content lives in
// its own file spliced into the main config through an include, so
// tearing it down never touches operator-authored files beyond that
// one directive.
package challenge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/logger"
	"github.com/ksyq12/certnginx/internal/mutate"
	"github.com/ksyq12/certnginx/internal/store"
	"github.com/ksyq12/certnginx/internal/template"
)

// ChallengeFilename is the name of the temporary config file under the
// server root.
const ChallengeFilename = "certnginx_challenge.conf"

// Challenge is one http-01 validation the server must answer.
type Challenge struct {
	Domain   string
	Token    string
	Response string
}

// Path returns where the challenge file lives for a given store.
func Path(s *store.Store) string {
	return filepath.Join(s.Root(), ChallengeFilename)
}

// Deploy writes server blocks answering the given challenges and
// splices them into the main config file's http block. All touched
// files go through cp first, so RevertTemporary can undo everything.
func Deploy(s *store.Store, cp store.Checkpointer, port string, challenges []Challenge) (string, error) {
	if len(challenges) == 0 {
		return "", errors.Validation("no challenges to deploy")
	}

	var b strings.Builder
	for _, c := range challenges {
		block, err := template.RenderChallenge(template.ChallengeData{
			Domain:   c.Domain,
			Port:     port,
			Token:    c.Token,
			Response: c.Response,
		})
		if err != nil {
			return "", err
		}
		b.WriteString(block)
	}

	path := Path(s)
	if err := cp.AddToCheckpoint([]string{path}); err != nil {
		return "", errors.Wrap(errors.ErrCodeRevert, "cannot snapshot challenge file", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write challenge config: %w", err)
	}

	if err := spliceInclude(s, path); err != nil {
		return "", err
	}
	if err := s.Save(cp); err != nil {
		return "", err
	}

	logger.Debug("deployed %d challenge block(s) in %s", len(challenges), path)
	return path, nil
}

// spliceInclude adds an include for the challenge file to the main
// config's http block. Re-deploying with the include already present
// is a no-op.
func spliceInclude(s *store.Store, challengePath string) error {
	root, ok := s.Get(s.RootFile())
	if !ok {
		return errors.Wrap(errors.ErrCodeInternal,
			fmt.Sprintf("root config %s not loaded", s.RootFile()), nil)
	}

	for i, block := range root.Blocks {
		if block.IsBlock("http") {
			return mutate.AddDirectives(root, []int{i},
				[][]string{{"include", challengePath}}, mutate.AppendIfAbsent)
		}
	}
	return errors.Wrap(errors.ErrCodeMisconfig,
		fmt.Sprintf("%s has no http block to host the challenge include", s.RootFile()), nil)
}
