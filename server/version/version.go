package version

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Masterminds/semver"
	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/zeromove/move-studio-api/build"
)

// CLIVersioner reports the version of the installed movement CLI.
type CLIVersioner interface {
	Version(ctx context.Context) (*semver.Version, error)
}

const probeTimeout = 10 * time.Second

// Handler reports the API, CLI and Go toolchain versions.
func Handler(cli CLIVersioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := struct {
			API      string `json:"api"`
			Movement string `json:"movement"`
			Go       string `json:"go"`
		}{
			API:      "n/a",
			Movement: "n/a",
			Go:       "n/a",
		}

		apiVer := build.Version()
		if apiVer != nil {
			version.API = apiVer.String()
		}

		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		if cliVer, err := cli.Version(ctx); err == nil {
			version.Movement = cliVer.String()
		}

		if goVer, err := getGoVersion(); err == nil {
			version.Go = goVer
		}

		render.JSON(w, r, version)
	}
}

func getGoVersion() (string, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", errors.New("failed to read build info")
	}
	return bi.GoVersion, nil
}
