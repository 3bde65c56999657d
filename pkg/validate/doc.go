// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Package validate reúne os predicados primitivos usados por todos os handlers
// do emulador para inspecionar corpos JSON decodificados em map[string]any.
//
// Semântica de "não especificado":
// No protocolo emulado, `null` é um valor com significado próprio (ex: "apague
// este campo" em um PATCH). Por isso existem duas famílias de predicados:
//
//   - IsUnspecified: verdadeiro quando a chave não existe ou o valor é "".
//     `null` NÃO é considerado não especificado.
//   - IsUnspecifiedOrNull: também considera `null`.
//
// As variantes Nested percorrem um caminho de chaves e retornam verdadeiro no
// primeiro salto não especificado, ou se o valor final for não especificado.
//
// Validadores de tamanho (StringLen, ListLen, ListOfStrings) aceitam min/max
// opcionais (<= 0 significa sem limite) e deixam passar campos ausentes quando
// nenhum mínimo foi exigido. Falhas são logadas e retornadas como *FieldError,
// que o handler converte em HTTP 400.
package validate
