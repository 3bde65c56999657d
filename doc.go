// Package psnemulator é um emulador local dos serviços de sessão e partida da
// PlayStation Network, usado para rodar testes de integração de jogos sem
// depender do ambiente real da PSN.
//
// Visão Geral:
// O emulador expõe em um único servidor HTTP as três famílias de API que um
// cliente de jogo usa durante o matchmaking e a partida:
// 1. Sessões NP (npsession): sessões PS4 criadas via multipart/mixed, com blobs
// de dados e imagem.
// 2. Player Sessions (playersession): sessões PS5 com jogadores, espectadores,
// líder, privilégios e usuários especificados.
// 3. Matches (match): partidas com roster, times, máquina de status, expiração
// e resultados competitivos ou cooperativos.
//
// Todo o estado fica em memória e cada requisição é atômica: validação completa
// antes de qualquer alteração nos stores.
//
// Sub-Pacotes Principais:
//
// 1. dispatcher:
//   - Tabela de rotas gorilla/mux, aceitando /v1 e /v1/npServiceLabels/{label}.
//   - Middleware com correlation id, log de requisição e recuperação de panics.
//   - Falhas simuladas (401 de token expirado) e rotas stub configuráveis.
//
// 2. config:
//   - Arquivo key=value ou YAML, sobrescrito por variáveis PSNEMU_*.
//   - Validação com go-playground/validator.
//
// 3. logger, metrics e observability:
//   - zerolog configurado pelo arquivo.
//   - Contadores do emulador reportados no log e, opcionalmente, no statsd do Datadog.
//
// 4. validate e webapi:
//   - Leitura tipada dos corpos JSON com mensagens no formato da PSN.
//   - Request/Reply independentes de net/http, o que mantém os módulos testáveis.
//
// Exemplo de Início Rápido:
//
// Arquivo emulator.conf mínimo:
//
//	port=8080
//	loglevel=debug
//	http409matchms=500
//	activities={"duel": {"category": "competitive", "scorename": "points"}}
//
// E a execução:
//
//	go run ./cmd/emulator -config emulator.conf
//
//	curl -X POST localhost:8080/v1/matches \
//		-H 'Authorization: Bearer 1000' -H 'Content-Type: application/json' \
//		-d '{"activityId": "duel"}'
package psnemulator
