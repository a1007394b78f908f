package email

import (
	"fmt"
	"html"
	"strings"

	"pocketchef/internal/models"
)

func shareHTML(from string, recipe models.Recipe, imageURL string) string {
	var image string
	if imageURL != "" {
		image = fmt.Sprintf(`<img class="photo" src="%s" alt="%s">`, html.EscapeString(imageURL), html.EscapeString(recipe.Title))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #fdf8f3;
        }
        .container {
            background-color: white;
            padding: 32px;
            border-radius: 12px;
            box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
        }
        .logo {
            font-size: 24px;
            font-weight: bold;
            color: #c0582b;
        }
        .photo {
            width: 100%%;
            border-radius: 8px;
            margin: 16px 0;
        }
        .meta {
            color: #777;
            font-size: 14px;
        }
        h2 {
            color: #c0582b;
            font-size: 18px;
            margin-top: 24px;
        }
        .footer {
            margin-top: 32px;
            font-size: 13px;
            color: #999;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo">Pocket Chef</div>
        <p><strong>%s</strong> thought you would like this recipe.</p>
        <h1>%s</h1>
        <div class="meta">%s &middot; %d min &middot; %s &middot; by %s</div>
        %s
        <h2>Ingredients</h2>
        <ul>%s</ul>
        <h2>Steps</h2>
        <ol>%s</ol>
        <div class="footer">Sent from Pocket Chef</div>
    </div>
</body>
</html>`,
		html.EscapeString(recipe.Title),
		html.EscapeString(from),
		html.EscapeString(recipe.Title),
		html.EscapeString(recipe.Category),
		recipe.PrepTime,
		html.EscapeString(recipe.Difficulty),
		html.EscapeString(recipe.Author),
		image,
		htmlItems(recipe.Ingredients),
		htmlItems(recipe.Steps),
	)
}

func htmlItems(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(item))
		b.WriteString("</li>")
	}
	return b.String()
}

func shareText(from string, recipe models.Recipe) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s thought you would like this recipe.\n\n", from)
	fmt.Fprintf(&b, "%s\n%s, %d min, %s, by %s\n\n", recipe.Title, recipe.Category, recipe.PrepTime, recipe.Difficulty, recipe.Author)

	b.WriteString("Ingredients:\n")
	for _, ingredient := range recipe.Ingredients {
		fmt.Fprintf(&b, "- %s\n", ingredient)
	}

	b.WriteString("\nSteps:\n")
	for i, step := range recipe.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	b.WriteString("\nSent from Pocket Chef\n")
	return b.String()
}
