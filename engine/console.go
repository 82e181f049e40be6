package engine

import (
	"context"
	"log/slog"
)

// consoleJS installs a console object that forwards every call to the
// Go-backed __console binding instead of QuickJS's (nonexistent)
// built-in one.
const consoleJS = `
(function() {
	var levels = ['log', 'info', 'warn', 'error', 'debug'];
	var con = {};
	for (var i = 0; i < levels.length; i++) {
		(function(lvl) {
			con[lvl] = function() {
				var parts = [];
				for (var j = 0; j < arguments.length; j++) {
					var arg = arguments[j];
					if (typeof arg === 'object' && arg !== null) {
						try {
							parts.push(JSON.stringify(arg));
						} catch (e) {
							parts.push(String(arg));
						}
					} else {
						parts.push(String(arg));
					}
				}
				__console(lvl, parts.join(' '));
			};
		})(levels[i]);
	}
	globalThis.console = con;
})();
`

// setupConsole registers the __console binding and installs the JS-side
// console object on top of it. Every log line is routed to the host
// logger tagged with the owning deployment, rather than discarded.
func setupConsole(rt *runtime, logger *slog.Logger, deploymentID string) error {
	if err := rt.RegisterFunc("__console", func(level, message string) {
		var sev slog.Level
		switch level {
		case "error":
			sev = slog.LevelError
		case "warn":
			sev = slog.LevelWarn
		case "debug":
			sev = slog.LevelDebug
		default:
			sev = slog.LevelInfo
		}
		logger.Log(context.Background(), sev, message, "deployment_id", deploymentID, "source", "console")
	}); err != nil {
		return err
	}
	return rt.Eval(consoleJS)
}
