package playersession

import (
	"github.com/raywall/psn-session-emulator/pkg/validate"
	"github.com/raywall/psn-session-emulator/pkg/webapi"
)

// validateReqPlayerSess valida os campos de sessão do corpo. Em create os campos
// obrigatórios são exigidos e os opcionais ausentes recebem os valores padrão da PSN.
// Fora de create apenas os campos presentes são aplicados sobre base, que deve ser
// uma cópia: em caso de erro ela fica parcialmente alterada.
func validateReqPlayerSess(c *validate.Checker, body map[string]any, base *PlayerSession, create bool) (*PlayerSession, error) {
	sess := base
	if sess == nil {
		sess = &PlayerSession{}
	}
	if create {
		sess.MaxSpectators = 0
		sess.JoinableUserType = JoinableFriendsOfFriends
		sess.InvitableUserType = InvitableLeader
		sess.JoinDisabled = false
		sess.SwapSupported = false
		sess.LeaderPrivileges = []LeaderPrivilege{PrivilegeKick, PrivilegeUpdateJoinableUserType}
		sess.JoinableSpecifiedUsers = []SpecifiedUser{}
	}

	if n, ok, err := c.Int(body, "maxPlayers", 1, maxPlayersLimit); err != nil {
		return nil, err
	} else if ok {
		sess.MaxPlayers = n
	} else if create {
		return nil, c.Failf("maxPlayers", "is required")
	}
	if n, ok, err := c.Int(body, "maxSpectators", 0, maxSpectatorsLimit); err != nil {
		return nil, err
	} else if ok {
		sess.MaxSpectators = n
	}

	if create || !validate.IsUnspecified(body, "supportedPlatforms") {
		if err := c.ListOfStrings(body, "supportedPlatforms", 1, len(platforms)); err != nil {
			return nil, err
		}
		list, _ := body["supportedPlatforms"].([]any)
		sess.SupportedPlatforms = make([]Platform, 0, len(list))
		for _, item := range list {
			p := item.(string)
			if err := c.OneOf("supportedPlatforms", p, platforms...); err != nil {
				return nil, err
			}
			sess.SupportedPlatforms = append(sess.SupportedPlatforms, Platform(p))
		}
	}

	if b, ok, err := c.Bool(body, "joinDisabled"); err != nil {
		return nil, err
	} else if ok {
		sess.JoinDisabled = b
	}
	if b, ok, err := c.Bool(body, "swapSupported"); err != nil {
		return nil, err
	} else if ok {
		sess.SwapSupported = b
	}
	if s, ok, err := c.String(body, "joinableUserType"); err != nil {
		return nil, err
	} else if ok {
		if err := c.OneOf("joinableUserType", s, joinableUserTypes...); err != nil {
			return nil, err
		}
		sess.JoinableUserType = JoinableUserType(s)
	}
	if s, ok, err := c.String(body, "invitableUserType"); err != nil {
		return nil, err
	} else if ok {
		if err := c.OneOf("invitableUserType", s, invitableUserTypes...); err != nil {
			return nil, err
		}
		sess.InvitableUserType = InvitableUserType(s)
	}
	if _, ok := body["leaderPrivileges"]; ok {
		if err := c.ListOfStrings(body, "leaderPrivileges", 0, len(leaderPrivileges)); err != nil {
			return nil, err
		}
		list, _ := body["leaderPrivileges"].([]any)
		sess.LeaderPrivileges = make([]LeaderPrivilege, 0, len(list))
		for _, item := range list {
			p := item.(string)
			if err := c.OneOf("leaderPrivileges", p, leaderPrivileges...); err != nil {
				return nil, err
			}
			sess.LeaderPrivileges = append(sess.LeaderPrivileges, LeaderPrivilege(p))
		}
	}

	for _, key := range []string{"customData1", "customData2"} {
		value, ok, err := customData(c, body, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if key == "customData1" {
			sess.CustomData1 = value
		} else {
			sess.CustomData2 = value
		}
	}

	if _, ok := body["localizedSessionName"]; ok {
		if err := upsertLocalizedSessionName(c, sess, body["localizedSessionName"]); err != nil {
			return nil, err
		}
	} else if create {
		return nil, c.Failf("localizedSessionName", "is required")
	}
	return sess, nil
}

// customData lê customData1/customData2. null é aceito e limpa o valor.
func customData(c *validate.Checker, body map[string]any, key string) (string, bool, error) {
	if _, present := body[key]; !present {
		return "", false, nil
	}
	if validate.IsUnspecifiedOrNull(body, key) {
		return "", true, nil
	}
	if err := c.StringLen(body, key, 0, maxCustomData); err != nil {
		return "", true, err
	}
	return body[key].(string), true, nil
}

// upsertLocalizedSessionName mescla localizedText sobre o nome atual, troca o idioma
// padrão quando informado e recalcula o nome de exibição. Nada é alterado se a
// mescla resultar inválida.
func upsertLocalizedSessionName(c *validate.Checker, sess *PlayerSession, raw any) error {
	obj, ok := raw.(map[string]any)
	if !ok {
		return c.Failf("localizedSessionName", "must be an object")
	}
	nc := c.Within("localizedSessionName")

	merged := LocalizedName{
		DefaultLanguage: sess.LocalizedSessionName.DefaultLanguage,
		LocalizedText:   make(map[string]string, len(sess.LocalizedSessionName.LocalizedText)),
	}
	for lang, text := range sess.LocalizedSessionName.LocalizedText {
		merged.LocalizedText[lang] = text
	}

	if lang, ok, err := nc.String(obj, "defaultLanguage"); err != nil {
		return err
	} else if ok {
		if lang == "" {
			return nc.Failf("defaultLanguage", "must not be empty")
		}
		merged.DefaultLanguage = lang
	}
	texts, _, err := nc.Object(obj, "localizedText")
	if err != nil {
		return err
	}
	tc := nc.Within("localizedText")
	for lang, v := range texts {
		if v == nil {
			delete(merged.LocalizedText, lang)
			continue
		}
		if err := tc.StringLen(texts, lang, 1, maxSessionNameLen); err != nil {
			return err
		}
		merged.LocalizedText[lang] = v.(string)
	}

	if merged.DefaultLanguage == "" {
		return nc.Failf("defaultLanguage", "is required")
	}
	if _, ok := merged.LocalizedText[merged.DefaultLanguage]; !ok {
		return nc.Failf("localizedText", "has no entry for defaultLanguage %q", merged.DefaultLanguage)
	}
	sess.LocalizedSessionName = merged
	sess.refreshName()
	return nil
}

// parseMember valida uma entrada de players/spectators. accountId e platform aceitam "me".
func parseMember(c *validate.Checker, obj map[string]any, req *webapi.Request, caller string) (Member, error) {
	account, ok, err := c.String(obj, "accountId")
	if err != nil {
		return Member{}, err
	}
	if !ok || account == "" {
		return Member{}, c.Failf("accountId", "is required")
	}
	account = webapi.ResolveAccount(account, caller)

	platform, ok, err := c.String(obj, "platform")
	if err != nil {
		return Member{}, err
	}
	if !ok {
		return Member{}, c.Failf("platform", "is required")
	}
	if platform == webapi.Me {
		platform = string(PlatformPS5)
	}
	if err := c.OneOf("platform", platform, platforms...); err != nil {
		return Member{}, err
	}

	if err := c.ListLen(obj, "pushContexts", 1, 1); err != nil {
		return Member{}, err
	}
	contexts, _, err := c.Objects(obj, "pushContexts")
	if err != nil {
		return Member{}, err
	}
	pc := c.Within("pushContexts[0]")
	if err := pc.StringLen(contexts[0], "pushContextId", 1, 0); err != nil {
		return Member{}, err
	}

	m := Member{
		AccountID:    account,
		Platform:     Platform(platform),
		OnlineID:     req.OnlineID(account),
		PushContexts: []PushContext{{PushContextID: contexts[0]["pushContextId"].(string)}},
	}
	if value, ok, err := customData(c, obj, "customData1"); err != nil {
		return Member{}, err
	} else if ok {
		m.CustomData1 = value
	}
	return m, nil
}
