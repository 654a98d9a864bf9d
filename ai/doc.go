// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ai provides the LLM abstraction used by BidGrid.
//
// Drafting conversations, vendor reply parsing and proposal ranking all reduce
// to one operation: send a system instruction plus a conversation and read
// back text. The Model interface captures exactly that, so business logic
// depends on an abstraction rather than a vendor SDK.
//
// # Implementation Packages
//
//   - ai/gemini: Google Gemini via google.golang.org/genai
//   - ai/openai: OpenAI-compatible APIs (OpenAI, Ollama, vLLM) via langchaingo
//   - ai/mock: Test double with scripted replies and call recording
//   - ai/provider: Picks one of the above from Config.Provider
//
// Public constructors return the ai.Model interface. The mock constructor
// returns the concrete *mock.MockModel so tests can script replies and
// assert on recorded requests.
//
// # Helpers
//
// Models often wrap JSON in markdown fences or drop quotes around keys.
// ExtractJSONObject and ExtractFencedJSON recover the document, and
// RetryWithBackoff retries transient provider failures.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(os.Getenv("GEMINI_API_KEY")))
//	model, err := provider.NewModel(ctx, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	reply, err := model.Generate(ctx, ai.Prompt(system, "I need 20 laptops"))
package ai
