package rag

// Built-in prompt templates for derived artifacts. The summary and quiz
// templates can be overridden via config; keywords and study questions
// are fixed because their JSON contracts are validated strictly.

const defaultSummaryPrompt = `You are an expert summarizer. Based ENTIRELY on the CONTENT below, write a concise, well-structured summary of the material. Use short paragraphs. Do not add outside knowledge.

CONTENT:
%s

Summary:`

const defaultQuizPrompt = `You are a quiz generator. Based ENTIRELY on the CONTENT below, create exactly %d multiple-choice questions.

Output format: a JSON array, no other text. Each element:
{"question": "...", "options": ["A", "B", "C", "D"], "answer": "..."}

Rules:
- Exactly %d questions.
- Each question has exactly 4 options.
- "answer" must be one of the options, verbatim.
- Questions must be answerable from the CONTENT alone.

CONTENT:
%s

JSON array:`

const keywordsPrompt = `You are a keyword extractor. Based ENTIRELY on the CONTENT below, extract the 10 to 15 most important keywords or key phrases.

Output format: a JSON array of strings, no other text.
Example: ["vector database", "cosine similarity", "embedding"]

CONTENT:
%s

JSON array:`

const studyQuestionsPrompt = `You are a study coach. Based ENTIRELY on the CONTENT below, write exactly %d open-ended study questions that test understanding of the material.

Output format: a JSON array of strings, no other text.
Example: ["Explain how ...", "Compare ... and ..."]

Rules:
- Exactly %d questions.
- Questions must be answerable from the CONTENT alone.

CONTENT:
%s

JSON array:`
