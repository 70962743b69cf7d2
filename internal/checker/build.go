package checker

import (
	"github.com/ResistanceIsUseless/StatusHawk/internal/config"
	"github.com/ResistanceIsUseless/StatusHawk/internal/dnsquery"
	"github.com/ResistanceIsUseless/StatusHawk/internal/logging"
	"github.com/ResistanceIsUseless/StatusHawk/internal/reputation"
	"github.com/ResistanceIsUseless/StatusHawk/internal/requester"
	"github.com/ResistanceIsUseless/StatusHawk/internal/rules"
	"github.com/ResistanceIsUseless/StatusHawk/internal/useragent"
)

// Build wires a complete checker from the application configuration.
// Explicitly named dataset files are loaded strictly (a missing rules
// or reputation file is an error); ambient settings degrade to
// defaults the way the requester does.
//
// Each call builds its own requester, so one Build per worker keeps
// transport sessions unshared.
func Build(cfg *config.Config, logger *logging.Logger) (*Checker, error) {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	var dnsOpts []dnsquery.Option
	if cfg.DNS.UseCache {
		dnsOpts = append(dnsOpts, dnsquery.WithCache())
	}
	dns, err := dnsquery.New(cfg.DNS.Nameservers, cfg.DNS.MaxRetries, dnsOpts...)
	if err != nil {
		return nil, err
	}

	req := requester.NewFromConfig(cfg, dns)

	if cfg.UserAgentsFile != "" {
		pool, err := useragent.Load(cfg.UserAgentsFile)
		if err != nil {
			// Ambient dataset: degrade to the configured single agent.
			logger.Warn("Failed to load user agents file, keeping the configured agent",
				"file", cfg.UserAgentsFile, "error", err)
		} else {
			req.SetUserAgentSource(pool.Latest)
		}
	}

	var rep ReputationProber
	if cfg.Lookup.UseReputation && cfg.ReputationFile != "" {
		dataset, err := reputation.Load(cfg.ReputationFile)
		if err != nil {
			return nil, err
		}
		rep = dataset
	}

	var engine *rules.Engine
	if cfg.Lookup.UseExtraRules {
		var ruleList []*rules.Rule
		if cfg.ExtraRulesFile != "" {
			list, warnings, err := rules.LoadFile(cfg.ExtraRulesFile)
			if err != nil {
				return nil, err
			}
			for _, warning := range warnings {
				logger.Warn("Skipping malformed rule", "reason", warning)
			}
			logger.RulesLoaded(len(list), cfg.ExtraRulesFile)
			ruleList = list
		}

		engine = rules.NewEngine(ruleList, req, logger)
		if cfg.BuiltinRules.Parked {
			engine.AddBuiltin(rules.NewParkedHandler(req))
		}
		if cfg.BuiltinRules.SubjectSwitch {
			engine.AddBuiltin(rules.NewSubjectSwitchHandler(req))
		}
	}

	return New(Config{
		Flags: Flags{
			UseReputation:      cfg.Lookup.UseReputation,
			UseHTTPCode:        cfg.Lookup.UseHTTPCode,
			UseExtraRules:      cfg.Lookup.UseExtraRules,
			DoSyntaxCheckFirst: cfg.Lookup.DoSyntaxCheckFirst,
		},
		Requester:          req,
		DNS:                dns,
		Reputation:         rep,
		Rules:              engine,
		UpCodes:            cfg.HTTPCodes.Up,
		PotentiallyUpCodes: cfg.HTTPCodes.PotentiallyUp,
		Logger:             logger,
	}), nil
}
