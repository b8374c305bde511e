package mcpserver

// DocumentFormat describes the Markdown document format LLM clients should
// follow when they write documents themselves instead of calling
// create_document.
const DocumentFormat = `# ansuz document format

Every documentation page is a Markdown file under the content root.

## Structure

` + "```" + `markdown
---
title: Deploying the API            # REQUIRED
description: How releases reach prod # OPTIONAL, one line
author: ops-team                      # OPTIONAL
created: 2026-01-15T09:30:00Z         # written by create_document
tags:                                 # OPTIONAL, YAML list or "a, b"
  - deploy
  - ops
---

# Deploying the API

{{category: Operations}}

Body text in standard Markdown.
` + "```" + `

## Rules

1. **Front matter** is a leading ` + "`---`" + ` block (TOML ` + "`+++`" + ` and JSON ` + "`;;;`" + `
   blocks are also read). A malformed block is ignored, not fatal.
2. **Title** comes from the ` + "`title`" + ` key, else the first level-1 heading,
   else the file name.
3. **Tags** are case-sensitive. ` + "`Go`" + ` and ` + "`go`" + ` are different tags.
   Duplicates collapse.
4. **Categories** come from ` + "`{{category: Name}}`" + ` markers in the body and from
   ` + "`category`" + ` / ` + "`categories`" + ` front-matter keys. A marker must close on the
   same line and the name must not contain braces.
5. **File names** are the title lowercased with every run of other characters
   replaced by ` + "`-`" + `, e.g. "My First Post" becomes ` + "`my-first-post.md`" + `.
   Existing files are never overwritten.
6. **Generated pages** live in the output directory (default ` + "`indexes/`" + `).
   Do not edit them; run generate_indexes instead.
`
